// cmd/checkall forces one synchronous verification pass over every active
// watch target, through the running API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	req, err := http.NewRequest(http.MethodPost, api+"/api/checks/run", nil)
	if err != nil {
		fmt.Println("Bad API base:", err)
		os.Exit(1)
	}
	if key := os.Getenv("ADMIN_API_KEY"); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	fmt.Println("🔍 Triggering a manual check of all watch targets...")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out map[string]string
		if json.Unmarshal(body, &out) == nil && out["status"] != "" {
			fmt.Println("🏁", out["status"])
		} else {
			fmt.Println("🏁 Done.")
		}
		return
	}
	fmt.Printf("API returned %s: %s\n", resp.Status, body)
	os.Exit(1)
}
