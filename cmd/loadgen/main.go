// Command loadgen floods the settlement topic with synthetic
// MatchSettledEvents so the consumer side (ledger writes, dedup on
// redelivery) can be load-tested without playing real matches.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/trivia-arena/internal/domain"
)

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
}

var categories = []string{"general", "science", "history", "geography"}

func playerID(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// syntheticEvent fabricates one plausible settlement outcome
func syntheticEvent(totalPlayers int) domain.MatchSettledEvent {
	outcome := domain.OutcomeWin
	ratingDelta := 12
	switch rand.Intn(3) {
	case 1:
		outcome = domain.OutcomeLoss
		ratingDelta = -8
	case 2:
		outcome = domain.OutcomeDraw
		ratingDelta = 0
	}

	correct := rand.Intn(6)
	return domain.MatchSettledEvent{
		MatchID:      uuid.NewString(),
		UserID:       playerID(rand.Intn(totalPlayers)),
		CategoryID:   categories[rand.Intn(len(categories))],
		Mode:         domain.ModeRanked,
		Outcome:      outcome,
		Score:        rand.Intn(correct*150 + 1),
		CorrectCount: correct,
		XPAwarded:    correct*10 + 20,
		CoinsAwarded: correct * 5,
		RatingDelta:  ratingDelta,
		NewLevel:     rand.Intn(20) + 1,
		Timestamp:    time.Now().UTC(),
	}
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "match-settlements", "Kafka topic")
	totalPlayers := flag.Int("players", 200, "Size of the synthetic player population")
	eventsPerSecond := flag.Int("rate", 50, "Settlement events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Printf("settlement load generator: brokers=%s topic=%s players=%d rate=%d/s\n",
		*brokers, *topic, *totalPlayers, *eventsPerSecond)

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	sendEvent := func(event domain.MatchSettledEvent) {
		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal event: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(event.MatchID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	shutdown := func(reason string) {
		fmt.Printf("\n%s\n", reason)
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	interval := time.Second / time.Duration(*eventsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var eventCount int64

	fmt.Println("Press Ctrl+C to stop")

	for {
		select {
		case <-sigChan:
			shutdown("Shutting down...")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached, shutting down...")
				return
			}

			sendEvent(syntheticEvent(*totalPlayers))
			atomic.AddInt64(&eventCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Events: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&eventCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
