// Package files locates and manages the files of an ISP/period run.
//
// Classifier picks the input file from the upload tree:
//
//	<uploads>/<isp>/<period>/subscribers/          detailed per-subscriber file
//	<uploads>/<isp>/<period>/oss_subscriptionOLD/  pre-aggregated file
//
// Directory names and accepted extensions come from the artifact contract.
// Discovery lists files by extension or by the suffix convention of the
// upstream validator, and Manager performs the copy and cleanup steps.
package files
