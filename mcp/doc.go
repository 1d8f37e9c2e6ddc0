// Package mcp serves jobharvest over the Model Context Protocol.
//
// Two tools are exposed on stdio: resolve_endpoint derives the jobs API
// endpoint for a careers site URL, and harvest_jobs runs a full harvest and
// reports its metrics, outputs and a sample of the records.
package mcp
