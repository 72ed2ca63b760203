/*
Beecrawler downloads spelling bee puzzles for a range of ids and appends their
letter sets and pangrams to a CSV file.

Usage:

	beecrawler [-config path] [-start id -end id]

When -start or -end is missing both bounds are read interactively from stdin.
Configuration comes from the optional YAML file and BEE_-prefixed environment
variables (for example BEE_SCRAPER_DELAY_MS=1000 or BEE_OUTPUT_DIR=/data).

Exporters are opt-in:

	db.dsn               upsert every record into Postgres
	storage.gcs_bucket   upload the finished CSV to GCS
	pubsub.project_id    publish one message per record (with pubsub.topic_name)

Setting server.port serves /healthz, /readyz, /metrics and /v1/run while the
batch runs. SIGINT or SIGTERM stops new fetches; anything already extracted is
still written.
*/
package main
