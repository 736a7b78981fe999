package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func runProcess(args []string, logger *zap.Logger) error {
	fs := pflag.NewFlagSet("process", pflag.ExitOnError)
	server := fs.StringP("server", "s", "http://localhost:8080", "Server base URL")
	file := fs.StringP("file", "f", "", "Audio file to upload (wav, mp3, m4a)")
	token := fs.StringP("token", "t", os.Getenv("VOICECMD_TOKEN"), "Bearer device token")
	timeout := fs.Duration("timeout", 90*time.Second, "Request timeout")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("audio", filepath.Base(*file))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, *server+"/process", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	logger.Info("Uploading clip", zap.String("file", *file), zap.Int("bytes", len(data)))

	start := time.Now()
	resp, err := (&http.Client{Timeout: *timeout}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	logger.Info("Server responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	return printJSON(respBody)
}

func printJSON(raw []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		_, err = os.Stdout.Write(raw)
		return err
	}
	pretty.WriteByte('\n')
	_, err := pretty.WriteTo(os.Stdout)
	return err
}
