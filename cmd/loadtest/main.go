package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50 // pairs of users chatting with each other
	MsgCount  = 20 // messages per user
)

type AuthResponse struct {
	Token string `json:"access_token"`
	ID    int64  `json:"id"`
}

type MessageResponse struct {
	ID int64 `json:"id"`
}

func main() {
	log.Printf("starting load test: %d users, %d messages each", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("load test complete")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password123"

	tokenA, idA := authenticate(userA, pass)
	tokenB, idB := authenticate(userB, pass)
	if tokenA == "" || tokenB == "" {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go chatWith(&wsWg, tokenA, idB, userA)
	go chatWith(&wsWg, tokenB, idA, userB)
	wsWg.Wait()
}

// authenticate registers (ignoring already-exists) and logs in.
func authenticate(username, password string) (string, int64) {
	// Registration may fail when the user already exists; either way
	// the response body has to be closed to return the connection.
	if resp, err := postJSON("/register", "", map[string]string{"username": username, "password": password}); err == nil {
		resp.Body.Close()
	}

	resp, err := postJSON("/login", "", map[string]string{"username": username, "password": password})
	if err != nil {
		log.Printf("login failed [%s]: %v", username, err)
		return "", 0
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.Token, data.ID
}

// chatWith keeps a websocket open (to appear online and absorb
// events) while spamming the HTTP API: send, react, then mark read.
func chatWith(wg *sync.WaitGroup, token string, peerID int64, user string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", WSURL, token), nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	// Drain inbound events so the server never sees a full buffer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastID int64
	for i := 0; i < MsgCount; i++ {
		resp, err := postJSON(fmt.Sprintf("/api/messages/send/%d", peerID), token,
			map[string]string{"text": fmt.Sprintf("loadtest msg %d from %s", i, user)})
		if err != nil {
			log.Printf("send failed [%s]: %v", user, err)
			break
		}
		var msg MessageResponse
		json.NewDecoder(resp.Body).Decode(&msg)
		resp.Body.Close()
		lastID = msg.ID

		if i%5 == 0 && msg.ID != 0 {
			if r, err := postJSON(fmt.Sprintf("/api/messages/react/%d", msg.ID), token,
				map[string]string{"emoji": "👍"}); err == nil {
				r.Body.Close()
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	if lastID != 0 {
		if r, err := postJSON(fmt.Sprintf("/api/messages/read/%d", peerID), token,
			map[string]int64{"lastMessageId": lastID}); err == nil {
			r.Body.Close()
		}
	}
	log.Printf("%s finished sending %d msgs", user, MsgCount)
}

func postJSON(endpoint, token string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	req, err := http.NewRequest("POST", BaseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}
