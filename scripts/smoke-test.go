//go:build ignore

// smoke-test.go - Exercise a running api-server end to end
//
// Registers a device account, then pulls the notification list and the
// mocked twitter feed with the issued access token.
//
// Usage:
//   go run scripts/smoke-test.go -base http://localhost:8080

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
)

var baseURL = "http://localhost:8080"

func main() {
	if len(os.Args) > 2 && os.Args[1] == "-base" {
		baseURL = os.Args[2]
	}

	deviceID := uuid.NewString()
	fmt.Printf("registering device %s\n", deviceID)

	body, _ := json.Marshal(map[string]string{"device_id": deviceID})
	resp, err := http.Post(baseURL+"/auth/auto_register", "application/json", bytes.NewReader(body))
	if err != nil {
		fail("auto_register request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		fail("auto_register status %d", resp.StatusCode)
	}

	var envelope struct {
		AccessToken string `json:"access_token"`
		IsNewUser   bool   `json:"is_new_user"`
		User        struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		fail("decode envelope: %v", err)
	}
	fmt.Printf("account %s (new=%v)\n", envelope.User.Username, envelope.IsNewUser)

	get("/notifications", envelope.AccessToken)
	get("/notifications/unread-count", envelope.AccessToken)
	get("/twitter/posts", envelope.AccessToken)
	get("/news", envelope.AccessToken)

	fmt.Println("smoke test passed")
}

func get(path, token string) {
	req, _ := http.NewRequest(http.MethodGet, baseURL+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode != http.StatusOK {
		fail("GET %s status %d: %s", path, resp.StatusCode, payload)
	}
	fmt.Printf("GET %s -> %d (%d bytes shown)\n", path, resp.StatusCode, len(payload))
}

func fail(format string, args ...any) {
	fmt.Printf("FAIL: "+format+"\n", args...)
	os.Exit(1)
}
