// smoke-auth exercises a running authentication-api end to end: it
// obtains a token for a seeded account and verifies the claims round-trip
// through the whoami endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("AUTH_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	username := os.Getenv("SMOKE_USERNAME")
	if username == "" {
		username = "alice"
	}
	password := os.Getenv("SMOKE_PASSWORD")
	if password == "" {
		password = "secret"
	}

	client := &http.Client{Timeout: 10 * time.Second}

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := client.Post(base+"/v1/auth/token", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("token endpoint returned %d", resp.StatusCode)
	}

	var issued struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		log.Fatalf("decode token response: %v", err)
	}
	if issued.Token == "" {
		log.Fatal("empty token")
	}
	if !issued.ExpiresAt.After(time.Now()) {
		log.Fatalf("token already expired: %v", issued.ExpiresAt)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/v1/auth/whoami", nil)
	if err != nil {
		log.Fatalf("build whoami request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	whoResp, err := client.Do(req)
	if err != nil {
		log.Fatalf("whoami: %v", err)
	}
	defer whoResp.Body.Close()
	if whoResp.StatusCode != http.StatusOK {
		log.Fatalf("whoami returned %d", whoResp.StatusCode)
	}

	var who struct {
		Kind    string   `json:"kind"`
		Subject string   `json:"subject"`
		Roles   []string `json:"roles"`
	}
	if err := json.NewDecoder(whoResp.Body).Decode(&who); err != nil {
		log.Fatalf("decode whoami response: %v", err)
	}
	if who.Kind != "user" || who.Subject == "" {
		log.Fatalf("unexpected principal: kind=%s subject=%q", who.Kind, who.Subject)
	}
	if len(who.Roles) == 0 {
		log.Fatal("principal has no roles")
	}

	fmt.Printf("smoke test passed: subject=%s roles=%v\n", who.Subject, who.Roles)
}
