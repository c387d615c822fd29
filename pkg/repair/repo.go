package repair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepo struct {
	vehicles *mongo.Collection
	repairs  *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		vehicles: db.Collection("vehicles"),
		repairs:  db.Collection("repairs"),
	}
}

func (r *MongoRepo) AddVehicle(ctx context.Context, v *Vehicle) error {
	result, err := r.vehicles.InsertOne(ctx, v)
	if err != nil {
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return errors.New("failed to convert inserted ID to ObjectID")
	}
	v.MongoID = oid
	v.ID = oid.Hex()
	return nil
}

func (r *MongoRepo) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var v Vehicle
	err = r.vehicles.FindOne(ctx, bson.M{"_id": objectID}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vehicle: %w", err)
	}

	v.ID = v.MongoID.Hex()
	return &v, nil
}

func (r *MongoRepo) VehiclesByOwner(ctx context.Context, ownerID string) ([]*Vehicle, error) {
	cursor, err := r.vehicles.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	vehicles := make([]*Vehicle, 0)
	for cursor.Next(ctx) {
		var v Vehicle
		if cursor.Decode(&v) == nil {
			v.ID = v.MongoID.Hex()
			vehicles = append(vehicles, &v)
		}
	}
	return vehicles, cursor.Err()
}

// UpdateVehicle overwrites the editable fields of a vehicle owned by ownerID.
func (r *MongoRepo) UpdateVehicle(ctx context.Context, ownerID, id string, form VehicleForm, at time.Time) (*Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	set := bson.M{
		"make":         form.Make,
		"model":        form.Model,
		"year":         form.Year,
		"plate_number": form.PlateNumber,
		"vin":          form.VIN,
		"color":        form.Color,
		"notes":        form.Notes,
		"updated_at":   at,
	}

	var updated Vehicle
	err = r.vehicles.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "owner_id": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}

	updated.ID = updated.MongoID.Hex()
	return &updated, nil
}

func (r *MongoRepo) CountVehicles(ctx context.Context) (int64, error) {
	return r.vehicles.CountDocuments(ctx, bson.D{})
}

func (r *MongoRepo) Create(ctx context.Context, rep *Repair) error {
	result, err := r.repairs.InsertOne(ctx, rep)
	if err != nil {
		return fmt.Errorf("failed to insert repair: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return errors.New("failed to convert inserted ID to ObjectID")
	}
	rep.MongoID = oid
	rep.ID = oid.Hex()
	return nil
}

func (r *MongoRepo) ByClient(ctx context.Context, clientID string) ([]*Repair, error) {
	return r.findRepairs(ctx, bson.M{"client_id": clientID})
}

func (r *MongoRepo) ByVehicle(ctx context.Context, clientID, vehicleID string) ([]*Repair, error) {
	return r.findRepairs(ctx, bson.M{"client_id": clientID, "vehicle_id": vehicleID})
}

func (r *MongoRepo) All(ctx context.Context) ([]*Repair, error) {
	return r.findRepairs(ctx, bson.D{})
}

func (r *MongoRepo) findRepairs(ctx context.Context, filter any) ([]*Repair, error) {
	cursor, err := r.repairs.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list repairs: %w", err)
	}
	defer cursor.Close(ctx)

	repairs := make([]*Repair, 0)
	for cursor.Next(ctx) {
		var rep Repair
		if cursor.Decode(&rep) == nil {
			rep.ID = rep.MongoID.Hex()
			repairs = append(repairs, &rep)
		}
	}
	return repairs, cursor.Err()
}

func (r *MongoRepo) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Repair, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var updated Repair
	err = r.repairs.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status, "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update repair status: %w", err)
	}

	updated.ID = updated.MongoID.Hex()
	return &updated, nil
}

func (r *MongoRepo) CountByStatus(ctx context.Context, status Status) (int64, error) {
	return r.repairs.CountDocuments(ctx, bson.M{"status": status})
}
