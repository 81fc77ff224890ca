// Package config provides configuration loading for the subscriber validation
// run and the upload directory layout it works against.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, lowest precedence first:
//
//	1. Default() values
//	2. An optional YAML file (-config flag)
//	3. An optional dotenv file (.env by default)
//	4. Environment variables
//
// # Environment Variables
//
// The keys match the names used by the existing deployment:
//
//	DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD, DB_SSLMODE
//	SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD
//	GOOGLE_MAPS_API_KEY, GOOGLE_MAPS_RPS
//	PATHS_UPLOADS_DIR
//	NOTIFY_SETTINGS_FILE, NOTIFY_FROM_ADDRESS, NOTIFY_ADMIN_EMAIL, NOTIFY_BCC
//	ARTIFACTS_CONTRACT_FILE
//	UPSTREAM_COMMAND, UPSTREAM_WORK_DIR, UPSTREAM_TIMEOUT, UPSTREAM_RESULTS_DIR
//	LOGGING_LEVEL, LOGGING_OUTPUT, LOGGING_FILE_PATH
//	TELEMETRY_TRACE_FILE, TELEMETRY_METRICS_FILE
//
// DB_PASSWORD and GOOGLE_MAPS_API_KEY have no defaults and must be supplied.
//
// # Upload Layout
//
// RunPaths resolves the per-run directories:
//
//	<uploads>/<isp>/<period>/subscribers/              detailed subscriber files
//	<uploads>/<isp>/<period>/oss_subscriptionOLD/      pre-aggregated files
//	<uploads>/<isp>/<period>/subscription_processed/   output artifacts
//
// The subdirectory names come from the artifact contract, not from this package.
package config
