// Command testasr is a mock ASR backend for local development. It
// accepts the same multipart requests the real backend does and returns
// a canned verbose JSON transcription.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"time"
)

type segment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

type transcriptionResponse struct {
	Text                string    `json:"text"`
	Language            string    `json:"language"`
	LanguageProbability *float64  `json:"language_probability"`
	Duration            float64   `json:"duration"`
	Segments            []segment `json:"segments"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	model := r.FormValue("model")
	language := r.FormValue("language")
	requestID := r.FormValue("request_id")
	responseFormat := r.FormValue("response_format")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("transcription request: request_id=%s model=%s language=%s format=%s file=%s bytes=%d",
		requestID, model, language, responseFormat, header.Filename, len(audioData))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	conf1 := -0.21
	conf2 := -0.35
	langProb := 0.98

	response := transcriptionResponse{
		Text:                "This is a test transcription. Generated by the mock backend.",
		Language:            "en",
		LanguageProbability: &langProb,
		Duration:            4.2,
		Segments: []segment{
			{Start: 0.0, End: 2.1, Text: " This is a test transcription.", AvgLogprob: &conf1},
			{Start: 2.1, End: 4.2, Text: " Generated by the mock backend.", AvgLogprob: &conf2},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("transcription response sent: request_id=%s text=%q", requestID, response.Text)
}

func main() {
	addr := flag.String("addr", ":8178", "Listen address")
	flag.Parse()

	http.HandleFunc("/v1/audio/transcriptions", transcribeHandler)

	log.Printf("Mock ASR server starting on %s", *addr)
	log.Printf("Endpoint: http://localhost%s/v1/audio/transcriptions", *addr)

	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
