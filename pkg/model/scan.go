package model

import "time"

// ScanSkip records a ticker the scan could not trade, with the reason
type ScanSkip struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// ScanResult is the outcome of one scan over upcoming earnings events.
// Results holds only tickers with at least one viable strategy; everything
// else lands in Skipped with its reason.
type ScanResult struct {
	Profile      string           `json:"profile"`
	From         time.Time        `json:"from"`
	To           time.Time        `json:"to"`
	TotalScanned int              `json:"total_scanned"`
	Results      []AnalysisResult `json:"results"`
	Skipped      []ScanSkip       `json:"skipped,omitempty"`
	ScanTime     time.Duration    `json:"scan_time"`
}
