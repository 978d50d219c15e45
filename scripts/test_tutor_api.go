package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout: tutoring replies can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func step(name string) {
	color.Cyan("\n=== %s ===", name)
}

func check(resp *http.Response, body []byte, err error) {
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("HTTP %d", resp.StatusCode)
	} else {
		color.Green("HTTP %d", resp.StatusCode)
	}
	prettyPrint(body)
}

func extractID(body []byte) string {
	var envelope struct {
		Data struct {
			Id string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Data.Id
}

func main() {
	token := os.Getenv("TUTOR_API_TOKEN")
	if token == "" {
		color.Red("TUTOR_API_TOKEN is not set")
		os.Exit(1)
	}

	step("Upload document")
	resp, body, err := sendRequest("POST", "/document/v1", token, map[string]string{
		"title":       "Pretotyping basics",
		"source_name": "pretotyping.pdf",
		"content":     "Pretotyping is a technique for validating market demand before building a product. The core idea is to fake the product and measure real interest. Unlike prototyping, which tests whether you can build it, pretotyping tests whether you should build it at all.",
	})
	check(resp, body, err)
	documentId := extractID(body)
	color.Yellow("document_id = %s", documentId)

	// Give the embed consumer a moment before the first retrieval.
	time.Sleep(3 * time.Second)

	step("Create tutoring session")
	resp, body, err = sendRequest("POST", "/tutor/v1/session", token, nil)
	check(resp, body, err)
	sessionId := extractID(body)
	color.Yellow("session_id = %s", sessionId)

	step("Ask a question")
	resp, body, err = sendRequest("POST", "/tutor/v1/session/"+sessionId+"/message", token, map[string]string{
		"text": "What is pretotyping?",
	})
	check(resp, body, err)

	step("Attempt an answer")
	resp, body, err = sendRequest("POST", "/tutor/v1/session/"+sessionId+"/message", token, map[string]string{
		"text": "I think it is about building a cheap prototype quickly.",
	})
	check(resp, body, err)

	step("Ask for a hint (meta question)")
	resp, body, err = sendRequest("POST", "/tutor/v1/session/"+sessionId+"/message", token, map[string]string{
		"text": "Can you give me a hint?",
	})
	check(resp, body, err)

	step("Session state")
	resp, body, err = sendRequest("GET", "/tutor/v1/session/"+sessionId+"/state", token, nil)
	check(resp, body, err)

	step("Transcript")
	resp, body, err = sendRequest("GET", "/tutor/v1/session/"+sessionId+"/history", token, nil)
	check(resp, body, err)

	step("Reset session")
	resp, body, err = sendRequest("POST", "/tutor/v1/session/"+sessionId+"/reset", token, nil)
	check(resp, body, err)

	color.Green("\nDone.")
}
