// Package prompts builds the system and user prompt pairs sent through
// the generation ports. Both ports demand strict JSON so responses can be
// parsed with llm.ParseJSONResponse.
package prompts

import (
	"fmt"
	"strings"
)

const queryGenerationSystem = `You are a data analyst that turns natural-language questions about a tabular dataset into queries in a constrained SQL subset.

The only supported syntax is:
SELECT <columns or AGG(column)> [FROM table] [WHERE <predicate>] [GROUP BY <column>] [ORDER BY <column> [ASC|DESC]] [LIMIT <n>]
Supported aggregate functions: AVG, SUM, COUNT, MAX, MIN.
Use only column names that exist in the dataset schema.

Respond with strict JSON and nothing else:
{
  "query_type": "<aggregation|filter|sorting|count|general>",
  "query_string": "<the query>",
  "explanation": "<one sentence explaining what the query does>",
  "visualization_type_hint": "<table|number|bar|line|pie>"
}`

// QueryGeneration builds the prompt pair for the query-generation port
// from a formatted schema description and the user's question.
func QueryGeneration(schema, question string) (system, user string) {
	var b strings.Builder
	b.WriteString("Dataset schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return queryGenerationSystem, b.String()
}

const insightGenerationSystem = `You are a data analyst that explains statistical findings to business users in plain language.

Given a dataset overview and one statistical finding, write a short, concrete insight. Do not invent numbers; use only what the finding states.

Respond with strict JSON and nothing else:
{
  "insight_type": "<correlation|distribution|anomaly|trend|summary|statistical>",
  "title": "<at most 200 characters>",
  "description": "<2-3 sentences>",
  "confidence_score": <number between 0 and 1>,
  "recommendations": ["<optional follow-up actions>"]
}`

// InsightGeneration builds the prompt pair for the insight-generation
// port. queryContext is optional and ties the insight to a specific
// query.
func InsightGeneration(overview, finding, queryContext string) (system, user string) {
	var b strings.Builder
	b.WriteString("Dataset overview:\n")
	b.WriteString(overview)
	b.WriteString("\nStatistical finding:\n")
	b.WriteString(finding)
	if queryContext != "" {
		fmt.Fprintf(&b, "\nQuery context:\n%s\n", queryContext)
	}
	return insightGenerationSystem, b.String()
}
