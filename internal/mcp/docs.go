package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `apontador turns service reports ("fichas") into Teamwork time entries.

Flow:
1) extract_sheet with the document (base64 content or plain text; path only over stdio). It returns a sheet id
   and the activity records found. An empty record list is a valid outcome; read the warnings.
2) list_projects / list_tasks to pick where the hours go. Only tasks carrying the configured tag
   are eligible. suggest_task proposes one task per activity; list_phases gives the phase names.
3) assign_task (and update_record for executor or description fixes) while the sheet is IN_PROGRESS.
4) submit_sheet posts each record in order. Use dry_run first to see fingerprints and the report.
   skip_duplicates avoids re-posting entries already accepted. A failed record never stops the
   batch; its attempts are listed in the result.
5) get_history reviews past batches.

Docs:
- apontador://docs/index
- apontador://docs/posting
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "apontador://docs/index",
		Name:        "docs_index",
		Title:       "apontador docs index",
		Description: "What the server does and the order to call the tools.",
		Content: `# apontador

## Sheets

A sheet is one uploaded ficha. Extraction tries three strategies in order (` + "`strict`" + `,
` + "`flexible`" + `, ` + "`manual`" + `) and keeps the first that finds records. Each record carries
date, executor, start, end, total, billable flag and the narrative description harvested from the
"Serviço Exec." block. When no narrative is found a placeholder sentence is used and
` + "`description_found`" + ` is false.

Sheets are ` + "`IN_PROGRESS`" + ` until a submission finishes; then they are ` + "`COMPLETED`" + ` and read-only.

## Tasks

` + "`list_tasks`" + ` flattens the project task tree, keeps tasks tagged with the configured tag
(inherited from parents when enabled), removes duplicates and sorts by name. When Teamwork cannot be
reached the list is empty and a warning explains why.

## History

Every non-dry-run submission appends one summary line to the history log.
`,
	},
	{
		URI:         "apontador://docs/posting",
		Name:        "docs_posting",
		Title:       "How time entries are posted",
		Description: "Endpoint and payload fallbacks, duplicate detection and error reporting.",
		Content: `# Posting time entries

Each record is tried against up to three endpoints: task scoped (numeric task id only), project
scoped and global. Each endpoint is tried with eight payload shapes (kebab or camel keys, numeric or
ISO date, integer or decimal hours, with or without start time). The first answer below 400 wins.

When everything fails the record reports the number of requests tried and the last three attempts,
newest first. Network errors show as ` + "`EXC`" + `.

Durations are rounded to the minute; a zero duration is posted as one minute. Descriptions longer
than the configured limit are cut and end with an ellipsis.

## Duplicates

A fingerprint of (ficha, ticket, date, start, end, task) is stored for every accepted entry. With
` + "`skip_duplicates`" + ` records whose fingerprint is known are skipped. The description is not
part of the fingerprint.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
