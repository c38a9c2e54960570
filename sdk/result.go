package sdk

import "encoding/json"

// ExportFileInfo describes one produced export file
type ExportFileInfo struct {
	StoreID  int    `json:"store_id"`
	FileName string `json:"file_name"`
}

// ExportResult accumulates the outcome of an export run. It is created empty
// at run start, mutated by the harness and fan out stages and persisted back
// to the profile's stored result field at run end.
type ExportResult struct {
	// LastError is the last error message of any failed stage, empty on a
	// clean run. A run can both produce files and report an error.
	LastError string `json:"last_error,omitempty"`
	// Files lists the produced files in production order
	Files []ExportFileInfo `json:"files,omitempty"`
	// DownloadFileName is the suggested name for a bundled download
	DownloadFileName string `json:"download_file_name,omitempty"`
}

// Succeeded returns true if no stage recorded an error
func (r *ExportResult) Succeeded() bool {
	return r.LastError == ""
}

// Stringify serializes the result for profile storage
func (r *ExportResult) Stringify() string {
	buf, _ := json.Marshal(r)
	return string(buf)
}

// ParseExportResult deserializes a stored result, returning an empty result
// for an empty payload
func ParseExportResult(data string) (*ExportResult, error) {
	var r ExportResult
	if data == "" {
		return &r, nil
	}
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
