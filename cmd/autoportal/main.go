package main

import (
	"github.com/gorilla/mux"

	"autoportal/internal/config"
	"autoportal/internal/logger"
	"autoportal/internal/mongo"
	"autoportal/internal/mysql"
	"autoportal/internal/redis"
	"autoportal/internal/routing"
)

func main() {
	cfg := config.Load() // load env var from .env

	logger := logger.Load(cfg.LogLevel)

	db := mysql.LoadDB(cfg.MySQLDSN)
	defer db.Close()

	mongoDB := mongo.LoadDB(cfg.MongoURI, cfg.MongoDBName)

	rdb := redis.LoadClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	routing.InitRoutes(api, cfg, db, mongoDB, rdb, logger)
	routing.ServeFallback(r, logger)
	routing.StartServer(r, cfg.Addr, logger)
}
