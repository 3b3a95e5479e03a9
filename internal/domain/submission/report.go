package submission

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/teamwork"
)

// Hours sums durations in minutes split by billable flag.
type Hours struct {
	BillableMinutes    int
	NonBillableMinutes int
}

// TotalMinutes returns billable plus non-billable minutes.
func (h Hours) TotalMinutes() int {
	return h.BillableMinutes + h.NonBillableMinutes
}

// SumHours totals the records of a sheet using the same minute rounding
// as the posted entries.
func SumHours(records []sheet.ActivityRecord) Hours {
	var h Hours
	for _, r := range records {
		hh, mm := teamwork.SplitDuration(r.TotalDuration)
		if r.Billable {
			h.BillableMinutes += hh*60 + mm
		} else {
			h.NonBillableMinutes += hh*60 + mm
		}
	}
	return h
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// money formats a value as Brazilian reais ("R$ 1.234,50").
func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := "R$ " + strings.Join(groups, ".") + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// BuildReport renders the plain-text summary of a batch.
func BuildReport(sh *sheet.ServiceSheet, res *Result, projectID string, req Request, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FICHA DE SERVIÇO %s\n", orDash(sh.FichaNumber))
	fmt.Fprintf(&b, "Cliente: %s\n", sh.Client)
	project := projectID
	if req.ProjectName != "" {
		project = fmt.Sprintf("%s (#%s)", req.ProjectName, projectID)
	}
	fmt.Fprintf(&b, "Projeto: %s\n", project)
	fmt.Fprintf(&b, "Tipo de serviço: %s\n", orDash(sh.ServiceType))
	if sh.Vertical != "" {
		fmt.Fprintf(&b, "Vertical: %s\n", sh.Vertical)
	}
	if sh.Ticket != "" {
		fmt.Fprintf(&b, "Ticket: %s\n", sh.Ticket)
	}
	fmt.Fprintf(&b, "Consultor: %s\n", orDash(req.ConsultantName))
	fmt.Fprintf(&b, "Data/Hora: %s\n", at.Format("02/01/2006 15:04:05"))
	b.WriteString("\n")

	byID := make(map[string]RecordResult, len(res.Records))
	for _, rr := range res.Records {
		byID[rr.RecordID] = rr
	}
	for _, r := range sh.Records {
		billable := "Não"
		if r.Billable {
			billable = "Sim"
		}
		fmt.Fprintf(&b, "%s  %s  %s-%s  %s  Faturável: %s\n", r.Date, r.ExecutorName, r.StartTime, r.EndTime, r.TotalDuration, billable)
		fmt.Fprintf(&b, "  Descrição: %s\n", r.Description)
		rr, ok := byID[r.ID]
		if !ok {
			b.WriteString("  Situação: não selecionado\n")
			continue
		}
		if rr.TaskID != "" {
			fmt.Fprintf(&b, "  Tarefa: #%s %s\n", rr.TaskID, rr.TaskName)
		}
		fmt.Fprintf(&b, "  Situação: %s\n", rr.Outcome)
	}

	h := SumHours(sh.Records)
	billableValue := float64(h.BillableMinutes) / 60 * sh.HourlyRate
	b.WriteString("\n")
	fmt.Fprintf(&b, "Horas cobradas: %s | Não cobradas: %s | Total: %s\n",
		clock(h.BillableMinutes), clock(h.NonBillableMinutes), clock(h.TotalMinutes()))
	fmt.Fprintf(&b, "Valor/hora: %s | Valor total: %s\n", money(sh.HourlyRate), money(billableValue))
	fmt.Fprintf(&b, "Lançados: %d | Falhas: %d | Ignorados: %d\n", res.Successes, res.Failures, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "Erro: %s\n", e)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
