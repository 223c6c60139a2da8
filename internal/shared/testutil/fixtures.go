package testutil

import (
	"bytes"
	"mime/multipart"
	"testing"
)

// SalesCSV is a small dataset with one missing price, one duplicate row and
// a date column stored as text.
const SalesCSV = `region,units,price,day
north,10,2.5,2021-01-01
south,12,,2021-01-02
north,10,2.5,2021-01-01
east,7,4.0,2021-01-03
`

// MultipartUpload builds a multipart body holding one file part plus the
// given form fields. It returns the body and its Content-Type header.
func MultipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}
