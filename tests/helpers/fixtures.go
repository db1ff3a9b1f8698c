package helpers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"strings"
)

// Sample slot contents
const (
	NetlistXML = `<?xml version="1.0"?>
<export version="D">
  <components>
    <comp ref="C1"><value>18pF</value></comp>
    <comp ref="R1"><value>10k</value></comp>
  </components>
</export>`

	BOMCSV = `Reference,Value,Part Number
C1,18pF,GCM1885C1H180JA16D
R1,10k,RC0603FR-0710KL
U1,TPS54331,TPS54331DR
U2,LM358,LM358DR
`

	ConditionsYAML = `ambient_temperature: 85
derating: 0.8
`

	TemplateDOCX = "PK\x03\x04 template"
)

// BigCSV returns a BOM with n data rows.
func BigCSV(n int) string {
	var b strings.Builder
	b.WriteString("Reference,Value,Part Number\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "C%d,18pF,GCM1885C1H180JA16D\n", i)
	}
	return b.String()
}

// MultipartFile builds a request body with content as the form field.
func MultipartFile(field, filename, content string) (*bytes.Buffer, string) {
	return MultipartFiles(map[string][2]string{field: {filename, content}})
}

// MultipartFiles builds a request body with one file per form field; each
// value is {filename, content}.
func MultipartFiles(files map[string][2]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, f := range files {
		part, err := w.CreateFormFile(field, f[0])
		if err != nil {
			panic(err)
		}
		_, _ = part.Write([]byte(f[1]))
	}
	_ = w.Close()
	return &buf, w.FormDataContentType()
}
