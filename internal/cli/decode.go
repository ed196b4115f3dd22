package cli

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func decode(resp *Response, v interface{}) error {
	if resp.NoContent() {
		return errors.New("empty response")
	}
	return errors.Wrap(json.Unmarshal(resp.Body, v), "decode response")
}
