// internal/websocket/utils.go
package websocket

import "encoding/json"

// mapToStruct decodes a message's loosely typed data into target
func mapToStruct(data interface{}, target interface{}) error {
	if data == nil {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

// MapToStruct is mapToStruct for handlers outside the package
func MapToStruct(data interface{}, target interface{}) error {
	return mapToStruct(data, target)
}
