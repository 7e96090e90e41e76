package model

// Record is an owned record with its plaintext in canonical text form.
type Record struct {
	Commitment   string `json:"commitment"`
	Record       string `json:"record"`
	Microcredits uint64 `json:"microcredits"`
}

// RecordsResponse represents response for GET /agent/records/...
type RecordsResponse struct {
	Address      string   `json:"address"`
	Start        uint32   `json:"start"`
	End          uint32   `json:"end"`
	Total        uint64   `json:"totalMicrocredits"`
	TotalCredits string   `json:"totalCredits"`
	Records      []Record `json:"records"`
}

// ProgramRecord is a ciphertext record output by a program.
type ProgramRecord struct {
	Commitment string `json:"commitment"`
	Record     string `json:"record"`
}

// ProgramRecordsResponse represents response for GET /agent/program/records
type ProgramRecordsResponse struct {
	Program string          `json:"program"`
	Records []ProgramRecord `json:"records"`
}
