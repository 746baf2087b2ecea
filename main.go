package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"pawLingo/config"
	"pawLingo/core"
	"pawLingo/processors"
	"pawLingo/server"
	"pawLingo/storage"
)

// 全局变量
var (
	interpreter   *processors.Interpreter
	metadataStore storage.MetadataStore
	vectorIndex   storage.InterpretationIndex
)

func main() {
	if err := os.MkdirAll(core.DataRoot(), 0755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// The catalog is loaded exactly once; malformed catalog data must
	// stop the process, not surface per-call.
	catalog, err := core.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load signal catalog: %v", err)
	}
	log.Printf("Signal catalog loaded: %d signals", catalog.Len())

	interpreter = processors.NewInterpreter(catalog)

	metadataStore = storage.OpenMetadataStore(cfg)
	backend := os.Getenv("STORE")
	if backend == "" {
		backend = "memory"
	}
	log.Printf("Metadata store initialized: %s", backend)

	vectorIndex = storage.OpenInterpretationIndex(cfg)
	indexBackend := os.Getenv("VECTOR_STORE")
	if indexBackend == "" {
		indexBackend = "memory"
	}
	log.Printf("Interpretation index initialized: %s", indexBackend)

	// One-shot CLI modes for quick debugging without a server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "interpret":
			runInterpretCLI(os.Args[2:])
			return
		case "match":
			runMatchCLI()
			return
		case "serve":
			// fall through to the server below
		default:
			log.Printf("unknown argument: %s\n", os.Args[1])
			log.Println("usage:")
			log.Println("  serve              - start the HTTP server (default)")
			log.Println("  interpret <ids...> - interpret signal ids (context via PLACE/INTERACTION/OBJECT env)")
			log.Println("  match              - rank catalog signals against a body description read from stdin")
			return
		}
	}

	interpretHandlers := server.NewInterpretHandlers(interpreter, vectorIndex)
	videoHandlers := server.NewVideoHandlers(metadataStore, interpreter, vectorIndex)
	previewHandlers := server.NewPreviewHandlers(metadataStore)
	monitoringHandlers := server.NewMonitoringHandlers(interpreter, metadataStore, vectorIndex)

	// Interpretation endpoints
	http.HandleFunc("/interpret", server.WithCORS(interpretHandlers.InterpretHandler))
	http.HandleFunc("/match", server.WithCORS(interpretHandlers.MatchHandler))
	http.HandleFunc("/catalog", server.WithCORS(interpretHandlers.CatalogHandler))

	// Video metadata endpoints
	http.HandleFunc("/videos", server.WithCORS(videoHandlers.VideosHandler))
	http.HandleFunc("/videos/", server.WithCORS(videoHandlers.VideoHandler))

	// Social preview
	http.HandleFunc("/preview/", previewHandlers.PreviewHandler)

	// Search over stored interpretations
	http.HandleFunc("/similar", server.WithCORS(interpretHandlers.SimilarHandler))
	http.HandleFunc("/ask", server.WithCORS(interpretHandlers.AskHandler))

	// Health monitoring endpoints
	http.HandleFunc("/health", monitoringHandlers.HealthCheckHandler)
	http.HandleFunc("/stats", monitoringHandlers.StatsHandler)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	log.Printf("Server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

// runInterpretCLI interprets the given signal ids once and prints the
// result as JSON.
func runInterpretCLI(signalIDs []string) {
	ctx := core.Context{
		Place:       os.Getenv("PLACE"),
		Interaction: os.Getenv("INTERACTION"),
		Object:      os.Getenv("OBJECT"),
	}
	result, err := interpreter.Interpret(signalIDs, ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "interpretation failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(result)
}

// runMatchCLI reads a body description JSON from stdin and prints the
// ranked signals.
func runMatchCLI() {
	var description core.BodyDescription
	if err := json.NewDecoder(os.Stdin).Decode(&description); err != nil {
		fmt.Fprintf(os.Stderr, "invalid body description: %v\n", err)
		os.Exit(1)
	}
	printJSON(processors.MatchDescription(interpreter.Catalog(), description))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}
