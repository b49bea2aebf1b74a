package models

// IngestionProgress is the single current-progress record for an ingestion
// run. Completed never exceeds Total at any observable point, and the
// terminal event always carries Completed == Total.
type IngestionProgress struct {
	FilePath  string `json:"filePath"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}
