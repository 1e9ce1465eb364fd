// codice delle API http
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"github.com/sanonone/basketdb/internal/server/ui"
	"github.com/sanonone/basketdb/pkg/core"
	"github.com/sanonone/basketdb/pkg/core/graph"
	"github.com/sanonone/basketdb/pkg/core/mining"
	"github.com/sanonone/basketdb/pkg/core/recommend"
	"github.com/sanonone/basketdb/pkg/core/types"
	"github.com/sanonone/basketdb/pkg/loader"
)

var uiHandler = ui.GetHandler()

// registerHTTPHandlers imposta le route per la API REST
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/", s.router)
}

// handleHealthz is the liveness probe, registered outside the middleware
// chain so load balancers can reach it without a token.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK"})
}

// router è il nostro router principale manuale. Analizza l'URL e delega all'handler corretto.
func (s *Server) router(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// --- Endpoint di Debug (pprof) ---
	if strings.HasPrefix(path, "/debug/pprof") {
		// Delega agli handler di pprof in base al suffisso
		switch {
		case path == "/debug/pprof/":
			pprof.Index(w, r)
		case path == "/debug/pprof/cmdline":
			pprof.Cmdline(w, r)
		case path == "/debug/pprof/profile":
			pprof.Profile(w, r)
		case path == "/debug/pprof/symbol":
			pprof.Symbol(w, r)
		case path == "/debug/pprof/trace":
			pprof.Trace(w, r)
		default:
			s.writeHTTPError(w, http.StatusNotFound, "Endpoint pprof non trovato")
		}
		return
	}

	// --- Dashboard ---
	if path == "/" {
		uiHandler.ServeHTTP(w, r)
		return
	}

	// --- Endpoint di Sistema ---
	if path == "/system/journal-rewrite" {
		s.handleJournalRewriteHTTP(w, r)
		return
	}
	if path == "/system/save" {
		s.handleSaveHTTP(w, r)
		return
	}
	if path == "/system/ingestors" {
		s.handleIngestorStatuses(w, r)
		return
	}
	if strings.HasPrefix(path, "/system/ingestors/") {
		// Pattern: /system/ingestors/{name}/trigger
		rest := strings.TrimPrefix(path, "/system/ingestors/")
		if name, ok := strings.CutSuffix(rest, "/trigger"); ok && name != "" {
			s.handleIngestorTrigger(w, r, name)
			return
		}
		s.writeHTTPError(w, http.StatusNotFound, "Endpoint non trovato")
		return
	}

	// --- Task Asincroni ---
	if strings.HasPrefix(path, "/tasks/") {
		s.handleTaskStatus(w, r, strings.TrimPrefix(path, "/tasks/"))
		return
	}

	// --- Endpoint Dataset ---
	if path == "/datasets" {
		s.handleDatasetsRequest(w, r)
		return
	}
	if strings.HasPrefix(path, "/datasets/") {
		s.routeDataset(w, r, strings.TrimPrefix(path, "/datasets/"))
		return
	}

	// Se nessun pattern ha matchato, restituisci Not Found.
	s.writeHTTPError(w, http.StatusNotFound, "Endpoint non trovato")
}

// routeDataset gestisce gli URL /datasets/{name}/... e smista alla sezione giusta.
func (s *Server) routeDataset(w http.ResponseWriter, r *http.Request, rest string) {
	name, sub, hasSub := strings.Cut(rest, "/")
	if name == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "Il nome del dataset non può essere vuoto")
		return
	}
	if !hasSub {
		s.handleSingleDataset(w, r, name)
		return
	}

	switch sub {
	case "baskets":
		s.handleBasketObserve(w, r, name)
	case "baskets/batch":
		s.handleBasketBatch(w, r, name)
	case "import":
		s.handleImport(w, r, name)
	case "edges":
		s.handleEdgeAdd(w, r, name)
	case "labels":
		s.handleLabels(w, r, name)
	case "stats":
		s.handleStats(w, r, name)
	case "recommend":
		s.handleRecommend(w, r, name)
	default:
		if q, ok := strings.CutPrefix(sub, "graph/"); ok {
			s.handleGraphQuery(w, r, name, q)
			return
		}
		if q, ok := strings.CutPrefix(sub, "mine/"); ok {
			s.handleMineQuery(w, r, name, q)
			return
		}
		if q, ok := strings.CutPrefix(sub, "recommend/"); ok {
			s.handleRecommendQuery(w, r, name, q)
			return
		}
		s.writeHTTPError(w, http.StatusNotFound, "Endpoint non trovato")
	}
}

// --- Handler Dataset ---

// handleDatasetsRequest gestisce sia la lista che la creazione
func (s *Server) handleDatasetsRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"datasets": s.Engine.Datasets()})
	case http.MethodPost:
		var req DatasetCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido")
			return
		}
		if req.Name == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "name è obbligatorio")
			return
		}
		if err := s.Engine.CreateDataset(req.Name); err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK", "message": "Dataset creato"})
	default:
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Consentiti solo GET e POST su /datasets")
	}
}

// handleSingleDataset gestisce GET e DELETE su un singolo dataset
func (s *Server) handleSingleDataset(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodGet:
		info, err := s.Engine.DatasetInfo(name)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, info)
	case http.MethodDelete:
		if err := s.Engine.DropDataset(name); err != nil {
			s.writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Consentiti solo GET e DELETE su /datasets/{name}")
	}
}

// --- Handler Ingestione ---

func (s *Server) handleBasketObserve(w http.ResponseWriter, r *http.Request, dataset string) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST")
		return
	}

	var req BasketObserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido, atteso un oggetto con la chiave 'items'")
		return
	}

	b, err := s.Engine.ObserveBasket(dataset, req.Items)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, BasketObserveResponse{Status: "OK", Basket: b})
}

func (s *Server) handleBasketBatch(w http.ResponseWriter, r *http.Request, dataset string) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST")
		return
	}

	var req BasketBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido, atteso un oggetto con la chiave 'baskets'")
		return
	}

	recorded, err := s.Engine.ObserveBaskets(dataset, req.Baskets)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, BasketBatchResponse{Status: "OK", Recorded: recorded})
}

// handleImport avvia un caricamento da file come task asincrono e risponde
// subito con l'ID del task.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, dataset string) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST")
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido")
		return
	}
	if req.Path == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "path è obbligatorio")
		return
	}

	ld, err := loader.ForFormat(req.Format)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	task := s.taskManager.NewTask()
	log.Printf("INFO: Import task %s started for dataset '%s' (%s)", task.ID, dataset, req.Path)

	go func() {
		task.SetStatus(TaskStatusRunning)

		baskets, err := ld.Load(req.Path)
		if err != nil {
			task.SetError(err)
			return
		}
		task.SetProgress(fmt.Sprintf("loaded %d baskets from %s", len(baskets), req.Path))

		rows := make([][]string, len(baskets))
		for i, b := range baskets {
			rows[i] = []string(b)
		}

		var recorded int
		if req.Mode == "observe" {
			recorded, err = s.Engine.ObserveBaskets(dataset, rows)
		} else {
			recorded, err = s.Engine.ImportBaskets(dataset, rows)
		}
		if err != nil {
			task.SetError(err)
			return
		}
		task.SetResult(ImportResult{Dataset: dataset, Path: req.Path, Loaded: len(baskets), Recorded: recorded})
	}()

	s.writeHTTPResponse(w, http.StatusAccepted, map[string]string{"status": "accepted", "task_id": task.ID})
}

func (s *Server) handleEdgeAdd(w http.ResponseWriter, r *http.Request, dataset string) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST")
		return
	}

	var req EdgeAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido")
		return
	}
	if req.A == "" || req.B == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "'a' e 'b' sono obbligatori")
		return
	}
	if req.Inc == 0 {
		req.Inc = 1
	}

	if err := s.Engine.AddEdge(dataset, req.A, req.B, req.Inc); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK", "message": "Arco aggiornato"})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request, dataset string) {
	switch r.Method {
	case http.MethodGet:
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
			return
		}
		ds, err := s.Engine.Dataset(dataset)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		label, found := ds.Label(id)
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"id": id, "label": label, "found": found})
	case http.MethodPost:
		var req LabelSetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido")
			return
		}
		if req.ID == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
			return
		}
		if err := s.Engine.SetLabel(dataset, req.ID, req.Label); err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK"})
	default:
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Consentiti solo GET e POST su /datasets/{name}/labels")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, dataset string) {
	if r.Method != http.MethodGet {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
		return
	}
	stats, err := s.Engine.Stats(dataset)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, stats)
}

// --- Handler Grafo ---

// handleGraphQuery gestisce le query di sola lettura sul grafo di co-acquisto.
func (s *Server) handleGraphQuery(w http.ResponseWriter, r *http.Request, dataset, q string) {
	if r.Method != http.MethodGet {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
		return
	}

	switch q {
	case "neighbors":
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
			return
		}
		neighbors, err := s.Engine.Neighbors(dataset, id)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": neighbors})

	case "top":
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
			return
		}
		k, ok := s.queryInt(w, r, "k", 5)
		if !ok {
			return
		}
		recs, err := s.Engine.TopConnections(dataset, id, k)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": recs})

	case "traversal":
		start := r.URL.Query().Get("start")
		if start == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "start è obbligatorio")
			return
		}
		maxDepth, ok := s.queryInt(w, r, "max_depth", -1)
		if !ok {
			return
		}
		var order []string
		var err error
		switch algo := r.URL.Query().Get("algo"); algo {
		case "", "bfs":
			order, err = s.Engine.BFS(dataset, start, maxDepth)
		case "dfs":
			order, err = s.Engine.DFS(dataset, start, maxDepth)
		default:
			s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("algoritmo '%s' sconosciuto, usare 'bfs' o 'dfs'", algo))
			return
		}
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": order})

	case "path":
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" || to == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "'from' e 'to' sono obbligatori")
			return
		}
		path, found, err := s.Engine.ShortestPath(dataset, from, to)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, PathResponse{Path: path, Found: found})

	case "within":
		start := r.URL.Query().Get("start")
		if start == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "start è obbligatorio")
			return
		}
		radius, ok := s.queryInt(w, r, "radius", 1)
		if !ok {
			return
		}
		ids, err := s.Engine.WithinDistance(dataset, start, radius)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": ids})

	case "components":
		components, err := s.Engine.Components(dataset)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": components})

	case "clustering":
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
			return
		}
		coeff, err := s.Engine.ClusteringCoefficient(dataset, id)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"id": id, "coefficient": coeff})

	default:
		s.writeHTTPError(w, http.StatusNotFound, "Endpoint non trovato")
	}
}

// --- Handler Mining ---

// handleMineQuery gestisce le query di mining sulle transazioni registrate.
func (s *Server) handleMineQuery(w http.ResponseWriter, r *http.Request, dataset, q string) {
	if r.Method != http.MethodGet {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
		return
	}

	switch q {
	case "pairs":
		minSupport, ok := s.queryFloat(w, r, "min_support", recommend.DefaultMinSupport)
		if !ok {
			return
		}
		pairs, err := s.Engine.FrequentPairs(dataset, minSupport)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": pairs})

	case "top-pairs":
		n, ok := s.queryInt(w, r, "n", 10)
		if !ok {
			return
		}
		pairs, err := s.Engine.TopPairs(dataset, n)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": pairs})

	case "items":
		minSupport, ok := s.queryFloat(w, r, "min_support", recommend.DefaultMinSupport)
		if !ok {
			return
		}
		items, err := s.Engine.FrequentItems(dataset, minSupport)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": items})

	case "itemsets":
		k, ok := s.queryInt(w, r, "k", 3)
		if !ok {
			return
		}
		minSupport, ok := s.queryFloat(w, r, "min_support", recommend.DefaultMinSupport)
		if !ok {
			return
		}
		sets, err := s.Engine.FrequentItemsets(dataset, k, minSupport)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": sets})

	case "apriori":
		maxK, ok := s.queryInt(w, r, "max_k", 3)
		if !ok {
			return
		}
		minSupport, ok := s.queryFloat(w, r, "min_support", recommend.DefaultMinSupport)
		if !ok {
			return
		}
		levels, err := s.Engine.Apriori(dataset, maxK, minSupport)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": levels})

	case "rules":
		minSupport, ok := s.queryFloat(w, r, "min_support", recommend.DefaultMinSupport)
		if !ok {
			return
		}
		minConfidence, ok := s.queryFloat(w, r, "min_confidence", 0.5)
		if !ok {
			return
		}
		rules, err := s.Engine.Rules(dataset, minSupport, minConfidence)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": rules})

	case "support":
		a := r.URL.Query().Get("a")
		b := r.URL.Query().Get("b")
		if a == "" || b == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "'a' e 'b' sono obbligatori")
			return
		}
		support, err := s.Engine.Support(dataset, a, b)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"a": a, "b": b, "support": support})

	default:
		s.writeHTTPError(w, http.StatusNotFound, "Endpoint non trovato")
	}
}

// --- Handler Raccomandazioni ---

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request, dataset string) {
	if r.Method != http.MethodGet {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
		return
	}
	k, ok := s.queryInt(w, r, "k", 5)
	if !ok {
		return
	}
	src, err := recommend.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	minSupport, ok := s.queryFloat(w, r, "min_support", 0)
	if !ok {
		return
	}

	recs, err := s.Engine.Recommend(dataset, id, k, src, minSupport)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": recs})
}

func (s *Server) handleRecommendQuery(w http.ResponseWriter, r *http.Request, dataset, q string) {
	switch q {
	case "basket":
		if r.Method != http.MethodPost {
			s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST")
			return
		}
		var req RecommendBasketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "JSON invalido, atteso un oggetto con la chiave 'items'")
			return
		}
		if req.K == 0 {
			req.K = 5
		}
		recs, err := s.Engine.RecommendForBasket(dataset, req.Items, req.K)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": recs})

	case "similar":
		if r.Method != http.MethodGet {
			s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeHTTPError(w, http.StatusBadRequest, "id è obbligatorio")
			return
		}
		k, ok := s.queryInt(w, r, "k", 5)
		if !ok {
			return
		}
		recs, err := s.Engine.SimilarProducts(dataset, id, k)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": recs})

	case "bundles":
		if r.Method != http.MethodGet {
			s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
			return
		}
		minSize, ok := s.queryInt(w, r, "min_size", 2)
		if !ok {
			return
		}
		maxSize, ok := s.queryInt(w, r, "max_size", 3)
		if !ok {
			return
		}
		k, ok := s.queryInt(w, r, "k", 5)
		if !ok {
			return
		}
		bundles, err := s.Engine.Bundles(dataset, minSize, maxSize, k)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"results": bundles})

	default:
		s.writeHTTPError(w, http.StatusNotFound, "Endpoint non trovato")
	}
}

// --- Handler Sistema ---

func (s *Server) handleSaveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST per avviare SAVE")
		return
	}

	if err := s.Engine.SaveSnapshot(); err != nil {
		s.writeHTTPError(w, http.StatusInternalServerError, fmt.Sprintf("fallimento processo SAVE: %v", err))
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK", "message": "Snapshot del database creato con successo."})
}

func (s *Server) handleJournalRewriteHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST per avviare la riscrittura del journal")
		return
	}

	if err := s.Engine.RewriteJournal(); err != nil {
		s.writeHTTPError(w, http.StatusInternalServerError, fmt.Sprintf("fallimento riscrittura journal: %v", err))
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK", "message": "Riscrittura del journal completata con successo"})
}

func (s *Server) handleIngestorStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
		return
	}
	if s.ingestorService == nil {
		s.writeHTTPResponse(w, http.StatusOK, map[string]any{"ingestors": []IngestorStatus{}})
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{"ingestors": s.ingestorService.GetStatuses()})
}

func (s *Server) handleIngestorTrigger(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo POST")
		return
	}
	if s.ingestorService == nil {
		s.writeHTTPError(w, http.StatusNotFound, "Nessun ingestor configurato")
		return
	}
	if err := s.ingestorService.Trigger(name); err != nil {
		s.writeHTTPError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK", "message": "Sincronizzazione avviata"})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeHTTPError(w, http.StatusMethodNotAllowed, "Usare il metodo GET")
		return
	}
	if id == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "id del task mancante")
		return
	}
	task, found := s.taskManager.GetTask(id)
	if !found {
		s.writeHTTPError(w, http.StatusNotFound, "Task non trovato")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.Info())
}

// --- Helper per le Risposte HTTP ---

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}

// httpStatusFor traduce gli errori dell'engine nel codice di stato HTTP giusto.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrDatasetNotFound), errors.Is(err, graph.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDatasetExists):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidParameter),
		errors.Is(err, graph.ErrSelfLoop),
		errors.Is(err, mining.ErrEmptyDataset),
		errors.Is(err, loader.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	s.writeHTTPError(w, httpStatusFor(err), err.Error())
}

// queryInt legge un parametro intero dalla query string, con valore di default.
func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("parametro '%s' non valido", name))
		return 0, false
	}
	return v, true
}

// queryFloat legge un parametro decimale dalla query string, con valore di default.
func (s *Server) queryFloat(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("parametro '%s' non valido", name))
		return 0, false
	}
	return v, true
}
