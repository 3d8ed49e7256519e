package main

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"time"
)

// Manager starts the engine server if it is not already running and
// tells the shell when the reader can be shown.
type Manager struct {
	logFunc    func(string)
	appFunc    func(string)
	serverCmd  *exec.Cmd
	serverAddr string
}

func NewManager(log, app func(string), serverAddr string) *Manager {
	return &Manager{logFunc: log, appFunc: app, serverAddr: serverAddr}
}

func (m *Manager) log(msg string) {
	if m.logFunc != nil {
		m.logFunc(msg)
	}
}

// Stop asks a server we started to shut down gracefully.
func (m *Manager) Stop() {
	if m.serverCmd == nil || m.serverCmd.Process == nil {
		return
	}
	fmt.Println("> Comicvox closing: sending shutdown signal to server...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/api/shutdown", m.serverAddr)
	req, _ := http.NewRequestWithContext(ctx, "POST", url, http.NoBody)
	resp, err := (&http.Client{Timeout: 2 * time.Second}).Do(req)
	if err != nil {
		fmt.Printf("> API shutdown failed: %v\n", err)
		_ = m.serverCmd.Process.Kill()
		return
	}
	resp.Body.Close()
	fmt.Println("> Shutdown command sent successfully.")
	time.Sleep(500 * time.Millisecond)
}

func (m *Manager) Start() {
	go func() {
		if !m.isServerRunning() {
			m.log("> Server not running. Starting comicvox...")
			if err := m.runServer(); err != nil {
				m.log(fmt.Sprintf("> Server start failed: %v", err))
				return
			}
		} else {
			m.log("> Server already active.")
		}

		m.log("> Waiting for server...")
		for i := 0; i < 30; i++ {
			if m.isServerReady() {
				m.log("> Server ready.")
				m.appFunc("http://" + m.serverAddr + "/")
				return
			}
			time.Sleep(time.Second)
		}
		m.log("> Server did not become ready in time.")
	}()
}

func (m *Manager) runServer() error {
	cmd := exec.Command("./comicvox")
	if err := cmd.Start(); err != nil {
		return err
	}
	m.serverCmd = cmd
	return nil
}

func (m *Manager) isServerRunning() bool {
	return m.isServerReady()
}

func (m *Manager) isServerReady() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get("http://" + m.serverAddr + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
