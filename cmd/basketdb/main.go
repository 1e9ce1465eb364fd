package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	basketmcp "github.com/sanonone/basketdb/internal/mcp"
	"github.com/sanonone/basketdb/internal/server"
	"github.com/sanonone/basketdb/pkg/engine"
	"github.com/sanonone/basketdb/pkg/loader"
)

// loadSpec is one -load occurrence: a dataset name and the file to preload
// into it.
type loadSpec struct {
	dataset string
	path    string
}

// loadFlags collects repeatable -load dataset=path occurrences.
type loadFlags []loadSpec

func (l *loadFlags) String() string {
	parts := make([]string, len(*l))
	for i, spec := range *l {
		parts[i] = spec.dataset + "=" + spec.path
	}
	return strings.Join(parts, ",")
}

func (l *loadFlags) Set(v string) error {
	dataset, path, ok := strings.Cut(v, "=")
	if !ok || dataset == "" || path == "" {
		return fmt.Errorf("formato non valido, usare dataset=percorso")
	}
	*l = append(*l, loadSpec{dataset: dataset, path: path})
	return nil
}

func main() {
	// flag.String e flag.Bool per definire parametri
	// flag.String(nome, val_default, descrizione per help)
	httpAddr := flag.String("http-addr", ":9091", "Indirizzo e porta per il server API REST (es. :9091)")
	dataDir := flag.String("data-dir", "basketdb_data", "Cartella dei file di persistenza (snapshot e journal)")
	mcpMode := flag.Bool("mcp", false, "Avvia il server MCP su stdio invece del server HTTP")
	ingestorsConfig := flag.String("ingestors-config", os.Getenv("BASKETDB_INGESTORS_CONFIG"), "Percorso del file YAML degli ingestor (opzionale)")
	authToken := flag.String("auth-token", os.Getenv("BASKETDB_AUTH_TOKEN"), "Bearer token per le API HTTP (vuoto = nessuna autenticazione)")

	var loads loadFlags
	flag.Var(&loads, "load", "Precarica un file di transazioni: dataset=percorso (ripetibile)")

	flag.Parse() // popola le variabili sopra con i valori forniti dall'utente

	eng, err := engine.Open(engine.DefaultOptions(*dataDir))
	if err != nil {
		log.Fatalf("Impossibile aprire l'engine: %v", err)
	}

	// precarica i file richiesti con -load prima di esporre qualsiasi API
	for _, spec := range loads {
		if err := preload(eng, spec); err != nil {
			log.Fatalf("Precarica di %s fallita: %v", spec.path, err)
		}
	}

	if *mcpMode {
		runMCP(eng)
		return
	}

	srv, err := server.NewServer(eng, *httpAddr, *ingestorsConfig, *authToken)
	if err != nil {
		log.Fatalf("Impossibile creare il server: %v", err)
	}

	// canale in ascolto del segnale di interruzione (Ctrl+c)
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	// avvia il server HTTP in una goroutine per non bloccare il main
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalf("Avvio del server fallito: %v", err)
		}
	}()

	// blocca il main in attesa del segnale di shutdown
	<-shutdownChan

	// esegue lo spegnimento pulito: prima l'HTTP, poi l'engine
	srv.Shutdown()
	if err := eng.Close(); err != nil {
		log.Printf("Chiusura dell'engine fallita: %v", err)
	}
}

// preload bulk-imports one transaction file into a dataset, format sniffed
// from the extension.
func preload(eng *engine.Engine, spec loadSpec) error {
	ld, err := loader.ForFormat("")
	if err != nil {
		return err
	}
	baskets, err := ld.Load(spec.path)
	if err != nil {
		return err
	}

	rows := make([][]string, len(baskets))
	for i, b := range baskets {
		rows[i] = b
	}
	recorded, err := eng.ImportBaskets(spec.dataset, rows)
	if err != nil {
		return err
	}
	log.Printf("Precaricati %d/%d panieri da %s nel dataset '%s'", recorded, len(baskets), spec.path, spec.dataset)
	return nil
}

// runMCP serves the analysis tools over stdio until the process is
// interrupted. Logs go to stderr, stdout carries the protocol.
func runMCP(eng *engine.Engine) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("BasketDB MCP server in ascolto su stdio")
	s := basketmcp.NewMCPServer(eng)
	if err := s.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Printf("Server MCP terminato con errore: %v", err)
	}

	if err := eng.Close(); err != nil {
		log.Printf("Chiusura dell'engine fallita: %v", err)
	}
}
