// Package mongodb stores student analytics records as MongoDB documents, one per student.
package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/masomo-learn/core"
)

// Open connects to MongoDB and pings the primary.
func Open(ctx context.Context, conf *core.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, conf.Mongo.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(conf.Mongo.URI).
		SetAppName(conf.AppName).
		SetTimeout(conf.Mongo.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	return client, nil
}

// Collection returns the student records collection named in the config.
func Collection(client *mongo.Client, conf *core.Config) *mongo.Collection {
	return client.Database(conf.Mongo.Database).Collection(conf.Mongo.Collection)
}
