package drive

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/textproto"
)

// fileMetadata is the metadata part of a multipart create request.
type fileMetadata struct {
	Name     string   `json:"name"`
	Parents  []string `json:"parents"`
	MimeType string   `json:"mimeType"`
}

// multipartRelated builds a multipart/related body whose first part is the
// JSON metadata and whose second part is the JSON payload, as expected by
// uploadType=multipart.
func multipartRelated(meta fileMetadata, payload []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", jsonMimeType)
	mediaPart, err := w.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := mediaPart.Write(payload); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, "multipart/related; boundary=" + w.Boundary(), nil
}
