package tools

import (
	"encoding/json"
)

func FmtIndentedJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "marshal data fail"
	}
	return string(data)
}
