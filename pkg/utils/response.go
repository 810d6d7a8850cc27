package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON 以JSON编码body并写出状态码，body为nil时只写状态码。
func RespondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response body: %v", err)
	}
}

// RespondError 发送错误响应，响应体与教学后端一致，统一为 {error: ...}。
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}
