package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/shorturl/pkg/app"
	"github.com/wadjakorntonsri/shorturl/pkg/config"
	"github.com/wadjakorntonsri/shorturl/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()

	log, err := logger.Init(cfg)
	if err != nil {
		panic(err)
	}

	// Note: On Vercel, db.sqlite is ephemeral unless DATABASE_URL points at Turso
	application, err := app.New(cfg, log)
	if err != nil {
		panic(err)
	}
	mux = application.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
