package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/calcount/calcount-api/config"
	repo "github.com/calcount/calcount-api/internal/domain/repository"
	"github.com/calcount/calcount-api/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	mongoClient *mongo.Client
	redisClient *redis.Client

	jwtManager *helpers.JWTManager

	userRepo   repo.UserRepository
	weightRepo repo.WeightLogRepository

	publisher helpers.Publisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetMongo(c *mongo.Client)     { mongoClient = c }
func GetMongo() *mongo.Client      { return mongoClient }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

// SetStores registers the repositories selected by STORE_DRIVER.
func SetStores(users repo.UserRepository, weights repo.WeightLogRepository) {
	userRepo, weightRepo = users, weights
}
func GetUserRepo() repo.UserRepository        { return userRepo }
func GetWeightRepo() repo.WeightLogRepository { return weightRepo }

func SetPublisher(p helpers.Publisher) { publisher = p }
func GetPublisher() helpers.Publisher  { return publisher }
func SetES(c *elasticsearch.Client)    { esClient = c }
func GetES() *elasticsearch.Client     { return esClient }
