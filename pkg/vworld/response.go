package vworld

import (
	"encoding/json"
	"fmt"
)

// Provider status values.
const (
	StatusOK       = "OK"
	StatusNotFound = "NOT_FOUND"
	StatusError    = "ERROR"
)

// Response is a parsed getCoord response.
type Response struct {
	Status    string
	Point     *Point     // nil when the provider returned no coordinate
	Structure *Structure // administrative breakdown of the refined address
	Refined   string
	Error     *APIError // set when Status is ERROR
}

// Point is an EPSG:4326 coordinate. X is longitude, Y is latitude.
type Point struct {
	X float64
	Y float64
}

// Structure is the administrative breakdown of refined.structure.
type Structure struct {
	Level0   string `json:"level0"`   // 국가
	Level1   string `json:"level1"`   // 시·도
	Level2   string `json:"level2"`   // 시·군·구
	Level3   string `json:"level3"`   // (일반구)구
	Level4L  string `json:"level4L"`  // 도로명
	Level4LC string `json:"level4LC"` // 도로코드
	Level4A  string `json:"level4A"`  // 행정동
	Level4AC string `json:"level4AC"` // 행정동 코드
	Level5   string `json:"level5"`   // 길 / 번지
	Detail   string `json:"detail"`
}

// APIError is the provider's error block.
type APIError struct {
	Level string `json:"level"`
	Code  string `json:"code"`
	Text  string `json:"text"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vworld: %s: %s", e.Code, e.Text)
}

// KeyRejected reports whether the provider refused the API key itself.
func (e *APIError) KeyRejected() bool {
	switch e.Code {
	case "INVALID_KEY", "INCORRECT_KEY", "UNAVAILABLE_KEY":
		return true
	default:
		return false
	}
}

type rawResponse struct {
	Response struct {
		Status  string `json:"status"`
		Refined *struct {
			Text      string     `json:"text"`
			Structure *Structure `json:"structure"`
		} `json:"refined"`
		Result *struct {
			Point *struct {
				X json.Number `json:"x"`
				Y json.Number `json:"y"`
			} `json:"point"`
		} `json:"result"`
		Error *APIError `json:"error"`
	} `json:"response"`
}

func (r rawResponse) toResponse() *Response {
	out := &Response{
		Status: r.Response.Status,
		Error:  r.Response.Error,
	}
	if ref := r.Response.Refined; ref != nil {
		out.Refined = ref.Text
		out.Structure = ref.Structure
	}
	if res := r.Response.Result; res != nil && res.Point != nil {
		x, errX := res.Point.X.Float64()
		y, errY := res.Point.Y.Float64()
		if errX == nil && errY == nil {
			out.Point = &Point{X: x, Y: y}
		}
	}
	return out
}
