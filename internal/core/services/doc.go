// Package services implements the core audit pipeline: matching invoice
// records against ledger rows, validating financial consistency,
// classifying each record and aggregating report rows. Each stage is a
// pure function of its input; orchestration lives in AnalysisPipeline and
// BatchAnalyzer.
package services
