package ballotengine

import (
	"log/slog"
	"time"

	httpadapter "ballotbox/contexts/governance/ballot-engine/adapters/http"
	"ballotbox/contexts/governance/ballot-engine/adapters/memory"
	"ballotbox/contexts/governance/ballot-engine/application/commands"
	"ballotbox/contexts/governance/ballot-engine/application/queries"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Ledger         ports.Ledger
	Reader         ports.VotingReader
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Metrics        ports.MetricsRecorder
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Host: commands.HostUseCase{
				Ledger:         deps.Ledger,
				Clock:          deps.Clock,
				IDGen:          deps.IDGen,
				Metrics:        deps.Metrics,
				IdempotencyTTL: deps.IdempotencyTTL,
				Logger:         deps.Logger,
			},
			Votes: commands.VoteUseCase{
				Ledger:  deps.Ledger,
				Clock:   deps.Clock,
				IDGen:   deps.IDGen,
				Metrics: deps.Metrics,
				Logger:  deps.Logger,
			},
			Ownership: commands.OwnershipUseCase{
				Ledger:  deps.Ledger,
				Clock:   deps.Clock,
				IDGen:   deps.IDGen,
				Metrics: deps.Metrics,
				Logger:  deps.Logger,
			},
			Registry: queries.RegistryUseCase{
				Reader: deps.Reader,
				Clock:  deps.Clock,
			},
			Tally: queries.TallyUseCase{
				Reader: deps.Reader,
				Clock:  deps.Clock,
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module to a process-local ledger owned by owner.
func NewInMemoryModule(owner entities.Address, metrics ports.MetricsRecorder, logger *slog.Logger) Module {
	store := memory.NewStore(owner)
	module := NewModule(Dependencies{
		Ledger:         store,
		Reader:         store,
		Clock:          store,
		IDGen:          store,
		Metrics:        metrics,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
