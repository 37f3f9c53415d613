package rpc

import (
	"net"
	"net/rpc"

	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
	"github.com/dareroom/gameserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes ops lookups over net/rpc: proof state with its
// tally, and per-room counters.
type AdminService struct {
	proofs *services.ProofService
	store  persistence.Store
}

func NewAdminService(proofs *services.ProofService, store persistence.Store) *AdminService {
	return &AdminService{proofs: proofs, store: store}
}

type GetProofArgs struct {
	ProofID string
}

type GetProofReply struct {
	Proof models.Proof
	Votes map[string]models.VoteValue
}

func (s *AdminService) GetProof(args *GetProofArgs, reply *GetProofReply) error {
	proof, votes, err := s.proofs.GetProofWithVotes(args.ProofID)
	if err != nil {
		return err
	}
	reply.Proof = *proof
	reply.Votes = votes
	return nil
}

type RoomStatsArgs struct {
	RoomID string
}

type RoomStatsReply struct {
	Players int
	Rounds  int
}

func (s *AdminService) GetRoomStats(args *RoomStatsArgs, reply *RoomStatsReply) error {
	players, err := s.store.ListPlayers(args.RoomID)
	if err != nil {
		return err
	}
	rounds, err := s.store.ListRounds(args.RoomID)
	if err != nil {
		return err
	}
	reply.Players = len(players)
	reply.Rounds = len(rounds)
	return nil
}
