package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"pharmadesk/m/internal/api"
	"pharmadesk/m/internal/config"
	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/migrations"
	"pharmadesk/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadBatches(db, cfg.MedicineCSV)

	handler := api.New(db, cfg.Secret)

	log.Printf("PharmaDesk server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
