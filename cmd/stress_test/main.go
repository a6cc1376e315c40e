package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/book-exchange/internal/adapter/storage"
	"github.com/rl1809/book-exchange/internal/config"
	"github.com/rl1809/book-exchange/internal/core/domain"
	"github.com/rl1809/book-exchange/internal/core/service"
)

const (
	totalExchanges      = 20
	respondersPerSwap   = 10
	duplicateRequesters = 25
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := service.NewNotificationDispatcher(store, store, store, cfg.StoreTimeout, logger)
	queue := service.NewNotificationQueue(dispatcher, cfg.QueueSize, cfg.WorkerCount, 2*cfg.StoreTimeout, logger)
	transfer := service.NewOwnershipTransfer(store, cfg.StoreTimeout, logger)

	opts := []service.Option{service.WithLogger(logger), service.WithStoreTimeout(cfg.StoreTimeout)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		opts = append(opts, service.WithRequestGuard(storage.NewRedisAdapter(rdb, cfg.RequestGuardTTL)))
	}
	exchanges := service.NewExchangeService(store, transfer, store, queue, opts...)

	// Seed one pair of books per exchange under a run-unique prefix
	run := uuid.NewString()[:8]
	ids := make([]string, 0, totalExchanges)
	for i := 0; i < totalExchanges; i++ {
		requester := fmt.Sprintf("%s-requester-%d", run, i)
		owner := fmt.Sprintf("%s-owner-%d", run, i)
		offered := fmt.Sprintf("%s-book-offered-%d", run, i)
		requested := fmt.Sprintf("%s-book-requested-%d", run, i)

		mustSeed(store.PutUser(ctx, requester, requester+"@example.com"))
		mustSeed(store.PutUser(ctx, owner, owner+"@example.com"))
		mustSeed(store.PutBook(ctx, offered, "Offered "+offered))
		mustSeed(store.PutBook(ctx, requested, "Requested "+requested))
		mustSeed(store.AssignOwner(ctx, offered, requester))
		mustSeed(store.AssignOwner(ctx, requested, owner))

		id, err := exchanges.RequestExchange(ctx, offered, requested, requester, owner)
		if err != nil {
			log.Fatalf("failed to request exchange %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	// Race responders against every exchange
	var successCount atomic.Int32
	var conflictCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i, id := range ids {
		owner := fmt.Sprintf("%s-owner-%d", run, i)
		for j := 0; j < respondersPerSwap; j++ {
			action := "accepted"
			if j%2 == 1 {
				action = "rejected"
			}

			wg.Add(1)
			go func(id, owner, action string) {
				defer wg.Done()

				ok, err := exchanges.RespondToExchange(ctx, id, action, owner)
				switch {
				case ok:
					successCount.Add(1)
				case errors.Is(err, domain.ErrInvalidState):
					conflictCount.Add(1)
				default:
					otherCount.Add(1)
					log.Printf("exchange %s: unexpected error: %v", id, err)
				}
			}(id, owner, action)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Duplicate request spam against one fresh pair
	var dupAccepted atomic.Int32
	var dupRejected atomic.Int32
	requester := fmt.Sprintf("%s-dup-requester", run)
	owner := fmt.Sprintf("%s-dup-owner", run)
	for i := 0; i < duplicateRequesters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := exchanges.RequestExchange(ctx, run+"-dup-offered", run+"-dup-requested", requester, owner)
			if errors.Is(err, domain.ErrDuplicateRequest) {
				dupRejected.Add(1)
			} else if err == nil {
				dupAccepted.Add(1)
			}
		}()
	}
	wg.Wait()

	queue.Close()

	// Results
	success := successCount.Load()
	conflicts := conflictCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", cfg.DBDriver)
	fmt.Printf("Exchanges:        %d\n", totalExchanges)
	fmt.Printf("Responders:       %d\n", totalExchanges*respondersPerSwap)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Conflicts:        %d\n", conflicts)
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == totalExchanges && conflicts == totalExchanges*(respondersPerSwap-1) {
		fmt.Println("PASS: Exactly one response won per exchange")
	} else {
		fmt.Printf("FAIL: Expected %d winners/%d conflicts, got %d/%d\n",
			totalExchanges, totalExchanges*(respondersPerSwap-1), success, conflicts)
	}

	// Verify every exchange ended terminal with matching ownership
	mismatched := 0
	for i, id := range ids {
		exchange, err := exchanges.GetExchange(ctx, id)
		if err != nil {
			log.Fatalf("failed to load exchange %s: %v", id, err)
		}
		offered, _ := store.GetOwner(ctx, exchange.OfferedItemID)
		wantOwner := fmt.Sprintf("%s-requester-%d", run, i)
		if exchange.Status == domain.ExchangeStatusCompleted {
			wantOwner = exchange.OwnerID
		}
		if !exchange.Status.Terminal() || offered.OwnerID != wantOwner {
			mismatched++
		}
	}
	if mismatched == 0 {
		fmt.Println("PASS: Ownership matches every exchange outcome")
	} else {
		fmt.Printf("FAIL: %d exchanges disagree with ownership\n", mismatched)
	}

	if cfg.RedisAddr != "" {
		fmt.Printf("Duplicate requests: %d accepted, %d rejected\n", dupAccepted.Load(), dupRejected.Load())
		if dupAccepted.Load() == 1 {
			fmt.Println("PASS: Request guard admitted exactly one duplicate")
		} else {
			fmt.Printf("FAIL: Expected 1 admitted duplicate, got %d\n", dupAccepted.Load())
		}
	}
}

func mustSeed(err error) {
	if err != nil {
		log.Fatalf("failed to seed: %v", err)
	}
}
