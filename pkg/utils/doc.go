// Package utils holds the small pieces of plumbing shared by the ingestion
// pipeline: a bounded worker pool, panic recovery and a Parquet exporter for
// ingestion results.
package utils
