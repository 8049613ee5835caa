package main

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg := loadConfig()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	app := newApp(db, logger)
	srv := newServer(app, newStore(cfg.SecretKey), logger)

	logger.Infof("listening on %s", cfg.Addr)
	logger.Fatal(http.ListenAndServe(cfg.Addr, srv.setupRouter()))
}
