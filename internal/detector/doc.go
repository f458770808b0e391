// Package detector defines the pagesentry detection framework.
//
// Architecture overview:
//
//   - Detectors implement the Detector interface (Scan + Name) and inspect a
//     read-only page.Snapshot for one class of weakness each. A detector may
//     run several pattern checks and return the union of what they find.
//   - Registry holds an ordered list of detectors. It is built explicitly at
//     startup, usually from Builtin, and handed to the scan orchestrator, which
//     runs every detector and isolates their failures.
//   - Pattern tables (secret formats, tracker domains, deprecated tags and so
//     on) are plain package-level data so they can be reviewed and extended
//     without touching detection logic. Extra secret formats can be loaded
//     from a YAML rules file with LoadSecretRules.
//
// Every finding a detector emits is built with finding.New, so its severity
// always matches the vulnerability catalog entry for its type.
package detector
