// Command apitest is a smoke-test runner for a deployed backend. It logs in
// with the system password, exercises the core endpoints (auth status,
// providers, conversations, query) and optionally runs the guest-login flow.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *client) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: status %d, unparseable body", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 300 || env.Code != 0 {
		return fmt.Errorf("%s %s: status %d code %d: %s", method, path, resp.StatusCode, env.Code, env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8000", "backend base URL")
	password := flag.String("password", os.Getenv("SYSTEM_PASSWORD"), "system password")
	question := flag.String("question", "What documents do you know about?", "question to ask")
	guest := flag.Bool("guest", false, "also run the guest login flow")
	timeout := flag.Duration("timeout", 60*time.Second, "per-request timeout")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
	}

	failed := 0
	step := func(label string, fn func() error) {
		if err := fn(); err != nil {
			failed++
			log.Printf("FAIL %-14s %v", label, err)
			return
		}
		log.Printf("ok   %s", label)
	}

	step("healthz", func() error {
		return c.do(http.MethodGet, "/healthz", nil, nil)
	})

	var status struct {
		SystemModeEnabled bool `json:"system_mode_enabled"`
	}
	step("auth_status", func() error {
		return c.do(http.MethodGet, "/auth/status", nil, &status)
	})

	if status.SystemModeEnabled && *password != "" {
		var login struct {
			AccessToken string `json:"access_token"`
		}
		step("system_login", func() error {
			if err := c.do(http.MethodPost, "/auth/system-login", map[string]string{"password": *password}, &login); err != nil {
				return err
			}
			c.token = login.AccessToken
			return nil
		})
	} else {
		log.Printf("skip system_login (system mode disabled or no password given)")
	}

	if c.token != "" {
		step("auth_config", func() error {
			return c.do(http.MethodGet, "/auth/config", nil, nil)
		})
		step("providers", func() error {
			return c.do(http.MethodGet, "/providers", nil, nil)
		})

		sessionID := fmt.Sprintf("apitest-%d", time.Now().Unix())
		var queryResp struct {
			Answer string `json:"answer"`
		}
		step("query", func() error {
			return c.do(http.MethodPost, "/query", map[string]string{
				"session_id": sessionID,
				"question":   *question,
			}, &queryResp)
		})
		if queryResp.Answer != "" {
			log.Printf("     answer: %.80s", queryResp.Answer)
		}

		step("messages", func() error {
			return c.do(http.MethodGet, "/conversations/"+sessionID+"/messages", nil, nil)
		})
		step("rename", func() error {
			return c.do(http.MethodPut, "/conversations/"+sessionID+"/title", map[string]string{"title": "apitest run"}, nil)
		})
		step("conversations", func() error {
			return c.do(http.MethodGet, "/conversations", nil, nil)
		})
		step("delete", func() error {
			return c.do(http.MethodDelete, "/conversations/"+sessionID, nil, nil)
		})
	}

	if *guest {
		gc := &client{baseURL: c.baseURL, http: c.http}
		var creds struct {
			SessionID   string `json:"session_id"`
			AccessToken string `json:"access_token"`
		}
		step("guest_login", func() error {
			if err := gc.do(http.MethodPost, "/auth/guest-login", map[string]any{}, &creds); err != nil {
				return err
			}
			gc.token = creds.AccessToken
			return nil
		})
		if gc.token != "" {
			step("guest_config", func() error {
				return gc.do(http.MethodGet, "/auth/config", nil, nil)
			})
			step("guest_logout", func() error {
				return gc.do(http.MethodPost, "/auth/logout", nil, nil)
			})
		}
	}

	if failed > 0 {
		log.Printf("%d step(s) failed", failed)
		os.Exit(1)
	}
	log.Printf("all steps passed")
}
