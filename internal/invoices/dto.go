package invoices

// UploadResponse is returned after a PDF is stored.
type UploadResponse struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// EditRequest is the manual correction body accepted on PUT.
type EditRequest struct {
	FileID   string   `json:"fileId,omitempty"`
	FileName *string  `json:"fileName,omitempty"`
	Vendor   *Vendor  `json:"vendor"`
	Invoice  *Details `json:"invoice"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	FileID  string `json:"fileId"`
	Deleted bool   `json:"deleted"`
}

func (r EditRequest) toPatch() Patch {
	return Patch{
		FileName: r.FileName,
		Vendor:   r.Vendor,
		Invoice:  r.Invoice,
	}
}
