// Package sensor implements the ingestion pipeline: sampling, data
// quality, bounded history and threshold alerting.
//
// The flow per intake tick is:
//
//	registry → due sensors → read hardware → calibrate → smooth →
//	score/flag → persist → room history cache → alert evaluation
//
// Sampling is rate-limited per device type (a light sensor every
// second, a water level probe every two minutes). Smoothing is a
// per-device moving average; the quality score and anomaly flag come
// from pluggable QualityScorer and AnomalyDetector collaborators with
// range-check and jump-detection defaults.
//
// The HistoryStore keeps the last 1000 readings per room and a merged
// current-state view the control loops consume. Anomalous readings are
// retained in history but never merged into current state.
//
// Alert IDs are deterministic over (alertType, readingID), so the same
// breach on the same reading can never produce duplicate alerts.
package sensor
