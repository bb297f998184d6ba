package main

import (
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/auth"
	"github.com/ukydev/fleet-costing/internal/config"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/engine"
	"github.com/ukydev/fleet-costing/internal/handlers"
	"github.com/ukydev/fleet-costing/internal/middleware"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg := config.Load()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB successfully!")

	database := client.Database(cfg.MongoDatabase)
	dieselStore := &db.MongoDieselCollection{Collection: database.Collection("dieselConsumption")}
	tripStore := &db.MongoTripCollection{Collection: database.Collection("trips")}
	normStore := &db.MongoNormCollection{Collection: database.Collection("dieselNorms")}
	assetStore := &db.MongoFleetAssetCollection{Collection: database.Collection("fleetAssets")}
	auditStore := &db.MongoAuditCollection{Collection: database.Collection("auditLog")}
	userCollection := &db.MongoUserCollection{Collection: database.Collection("users")}

	trail := audit.NewTrail(auditStore, connectPublisher(cfg), cfg.AuditTopic)

	ledger := engine.NewAllocationLedger(dieselStore, tripStore, trail)
	ledger.SetRetry(cfg.StoreRetries, cfg.StoreTimeout)
	records := engine.NewRecordService(dieselStore, assetStore, ledger, trail)
	norms := engine.NewNormRegistry(normStore, trail)
	flags := engine.NewFlagService(tripStore, trail)
	flags.SetRetry(cfg.StoreRetries, cfg.StoreTimeout)
	probe := engine.NewProbeVerifier(dieselStore, flags, trail)
	debrief := engine.NewDebriefWorkflow(dieselStore, assetStore, norms, probe, trail)

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:      handlers.NewAuthHandler(authService, userCollection),
		Diesel:    handlers.NewDieselHandler(records, ledger, debrief, probe),
		Norms:     handlers.NewNormHandler(norms),
		Flags:     handlers.NewFlagHandler(flags),
		Trips:     handlers.NewTripHandler(tripStore, flags),
		Assets:    handlers.NewAssetHandler(assetStore),
		AuthMW:    middleware.NewAuthMiddleware(authService),
		RateLimit: middleware.NewRateLimitMiddleware(),
	})

	log.WithField("port", cfg.Port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}

// connectPublisher connects the optional MQTT audit publisher. The service
// runs without it when no broker is configured or the connect fails.
func connectPublisher(cfg *config.Config) audit.Publisher {
	if cfg.MQTTBrokerURL == "" {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID("fleet-costing-api").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Warn("MQTT broker unreachable, audit publishing disabled")
		return nil
	}

	log.WithField("broker", cfg.MQTTBrokerURL).Info("Connected to MQTT broker")
	return &audit.MQTTPublisher{Client: client}
}
