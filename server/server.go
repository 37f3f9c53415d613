package server

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/rpc"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dareroom/gameserver/broadcast"
	"github.com/dareroom/gameserver/catalog"
	"github.com/dareroom/gameserver/config"
	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/monitor"
	"github.com/dareroom/gameserver/persistence"
	gameserver_rpc "github.com/dareroom/gameserver/rpc"
	"github.com/dareroom/gameserver/services"
	"github.com/dareroom/gameserver/session"
	"github.com/dareroom/gameserver/template"
)

type GameServer struct {
	addr           string
	publicBaseURL  string
	store          persistence.Store
	syncer         *catalog.Syncer
	selector       *catalog.Selector
	renderer       *template.Renderer
	rounds         *services.RoundService
	proofs         *services.ProofService
	sessionManager *session.Manager
	hub            *broadcast.Hub
	monitor        *monitor.Monitor
	upgrader       websocket.Upgrader
	rpcServer      *gameserver_rpc.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg config.ServerConfig, store persistence.Store, syncer *catalog.Syncer, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           cfg.HTTPAddress,
		publicBaseURL:  cfg.PublicBaseURL,
		store:          store,
		syncer:         syncer,
		sessionManager: session.NewManager(),
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.hub = broadcast.NewHub(s.sessionManager)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s.selector = catalog.NewSelector(store, rng)
	s.selector.OnFallback = func(packID string, _ models.CardType, level string) {
		logger.Log.Infof("Card draw relaxed level %q for pack %s", level, packID)
		mon.DrawFallback()
	}
	s.renderer = template.NewRenderer(rng)

	s.rounds = services.NewRoundService(store, s.hub, mon)
	s.proofs = services.NewProofService(store, s.hub, mon)

	// 初始化RPC服务器
	rpcServer, err := gameserver_rpc.NewServer(cfg.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(gameserver_rpc.NewAdminService(s.proofs, store))

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.routes())
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	// Closing the connections unblocks every feed's read loop.
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
}

func (s *GameServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /packs", s.handleListPacks)
	mux.HandleFunc("POST /packs", s.handleCreatePack)
	mux.HandleFunc("GET /packs/{packId}/cards", s.handleListCards)
	mux.HandleFunc("POST /packs/{packId}/cards", s.handleCreateCard)
	mux.HandleFunc("DELETE /packs/{packId}/cards/{cardId}", s.handleDeleteCard)
	mux.HandleFunc("GET /cards/next", s.handleNextCard)

	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /rooms/{roomId}", s.handleGetRoom)
	mux.HandleFunc("POST /rooms/{roomId}/group", s.handleBindGroup)
	mux.HandleFunc("GET /rooms/{roomId}/qr", s.handleRoomQR)
	mux.HandleFunc("GET /rooms/{roomId}/events", s.handleEvents)
	mux.HandleFunc("POST /rooms/{roomId}/players", s.handleAddPlayer)
	mux.HandleFunc("GET /rooms/{roomId}/players", s.handleListPlayers)
	mux.HandleFunc("DELETE /rooms/{roomId}/players/{playerId}", s.handleRemovePlayer)

	mux.HandleFunc("POST /rooms/{roomId}/rounds", s.handleCreateRound)
	mux.HandleFunc("GET /rooms/{roomId}/rounds", s.handleListRounds)
	mux.HandleFunc("POST /rooms/{roomId}/rounds/{roundId}/status", s.handleSetRoundStatus)

	mux.HandleFunc("POST /rooms/{roomId}/proofs", s.handleCreateProof)
	mux.HandleFunc("GET /rooms/{roomId}/proofs/{proofId}", s.handleGetRoomProof)
	mux.HandleFunc("POST /rooms/{roomId}/proofs/{proofId}/complete", s.handleCompleteProof)
	mux.HandleFunc("POST /rooms/{roomId}/proofs/{proofId}/vote", s.handleVote)
	mux.HandleFunc("GET /proofs/{proofId}", s.handleGetProof)

	return mux
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
