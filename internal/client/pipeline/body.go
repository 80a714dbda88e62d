package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/apiclient/internal/common"
)

// Binary is sent as-is. ContentType, when set, is passed through; otherwise
// no content type is sent.
type Binary struct {
	Reader      io.Reader
	ContentType string
}

// Multipart is a pre-encoded multipart body. ContentType must carry the
// boundary, e.g. from multipart.Writer.FormDataContentType.
type Multipart struct {
	Body        io.Reader
	ContentType string
}

// encodeBody turns a request body into bytes that can be sent twice, plus
// the content type to send ("" for none).
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return b, common.ContentTypeJSON, nil
	case []byte:
		return b, "", nil
	case Binary:
		raw, err := readAll(b.Reader)
		return raw, b.ContentType, err
	case *Binary:
		raw, err := readAll(b.Reader)
		return raw, b.ContentType, err
	case Multipart:
		raw, err := readAll(b.Body)
		return raw, b.ContentType, err
	case *Multipart:
		raw, err := readAll(b.Body)
		return raw, b.ContentType, err
	case io.Reader:
		raw, err := readAll(b)
		return raw, "", err
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return raw, common.ContentTypeJSON, nil
	}
}

func readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return raw, nil
}
