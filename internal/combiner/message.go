package combiner

import (
	"bytes"

	"github.com/tidwall/gjson"
)

const (
	messageMarker = `"message":"`
	pathMarker    = `","path":`
)

// ExtractErrorMessage returns the message of an engine error response. Engines answer
// errors with an object carrying both a "message" and a "path" field, in any order and
// with any spacing; any other body yields an empty message.
//
// Bodies that are not valid JSON, such as error bodies truncated by the client, are
// scanned for the literal `"message":"...","path":` layout instead.
func ExtractErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return scanErrorMessage(body)
	}

	result := gjson.ParseBytes(body)
	if !result.IsObject() {
		return ""
	}

	message := result.Get("message")
	if message.Type != gjson.String || !result.Get("path").Exists() {
		return ""
	}
	return message.String()
}

func scanErrorMessage(body []byte) string {
	i := bytes.Index(body, []byte(messageMarker))
	if i == -1 {
		return ""
	}
	start := i + len(messageMarker)
	j := bytes.Index(body[start:], []byte(pathMarker))
	if j == -1 {
		return ""
	}
	return string(body[start : start+j])
}
