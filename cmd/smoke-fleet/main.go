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

// Smoke test against a running fleet-api: obtain a bearer token, list
// vehicles, hit the dashboard. Exercises the token path end to end.
func main() {
	base := os.Getenv("FLEET_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	username := os.Getenv("FLEET_SMOKE_USER")
	password := os.Getenv("FLEET_SMOKE_PASSWORD")
	if username == "" || password == "" {
		log.Fatal("FLEET_SMOKE_USER and FLEET_SMOKE_PASSWORD are required")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := client.Post(base+"/v1/token", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("token request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("token request: status %d", resp.StatusCode)
	}
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		log.Fatalf("decode token: %v", err)
	}
	if tok.Token == "" {
		log.Fatal("empty token")
	}

	get := func(path string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, base+path, nil)
		if err != nil {
			log.Fatalf("build request %s: %v", path, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("get %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("get %s: status %d", path, resp.StatusCode)
		}
		return resp
	}

	vehiclesResp := get("/v1/vehicles")
	var vehicles struct {
		Vehicles []json.RawMessage `json:"vehicles"`
	}
	if err := json.NewDecoder(vehiclesResp.Body).Decode(&vehicles); err != nil {
		log.Fatalf("decode vehicles: %v", err)
	}
	vehiclesResp.Body.Close()

	dashResp := get("/v1/dashboard")
	var dash struct {
		ActiveVehicles int `json:"active_vehicles"`
	}
	if err := json.NewDecoder(dashResp.Body).Decode(&dash); err != nil {
		log.Fatalf("decode dashboard: %v", err)
	}
	dashResp.Body.Close()

	fmt.Printf("✅ fleet-api smoke test passed: vehicles=%d active=%d\n",
		len(vehicles.Vehicles), dash.ActiveVehicles)
}
