package dynamodb

import (
	"context"
	"encoding/json"
	"strconv"

	"canvas-backend/application/ports"
	"canvas-backend/domain/canvas"
	pkgerrors "canvas-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// SnapshotRepository implements ports.SnapshotRepository on the same
// single table as projects. One snapshot row exists per project, under
// PK "PROJECT#<id>", SK "SNAPSHOT"; Put replaces it wholesale with no
// field-level merging.
type SnapshotRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.SnapshotRepository {
	return &SnapshotRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

const snapshotSK = "SNAPSHOT"

// snapshotItem represents the DynamoDB item structure for a canvas
// snapshot. Nodes and edges are stored as JSON documents since the
// snapshot is always read and written as a unit.
type snapshotItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ProjectID  string `dynamodbav:"ProjectID"`
	Nodes      string `dynamodbav:"Nodes"`
	Edges      string `dynamodbav:"Edges"`
	Version    int    `dynamodbav:"Version"`
}

// Put upserts the project's snapshot.
func (r *SnapshotRepository) Put(ctx context.Context, snap *canvas.PersistedSnapshot) error {
	nodes, err := json.Marshal(snap.Nodes)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal snapshot nodes", err)
	}
	edges, err := json.Marshal(snap.Edges)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal snapshot edges", err)
	}

	item := snapshotItem{
		PK:         projectPK(snap.ProjectID),
		SK:         snapshotSK,
		EntityType: "SNAPSHOT",
		ProjectID:  snap.ProjectID,
		Nodes:      string(nodes),
		Edges:      string(edges),
		Version:    snap.Version,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal snapshot", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("put snapshot", err)
	}

	r.logger.Debug("snapshot saved",
		zap.String("projectID", snap.ProjectID),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return nil
}

// Get retrieves the project's snapshot. A missing row is (nil, nil);
// the caller synthesizes an empty snapshot.
func (r *SnapshotRepository) Get(ctx context.Context, projectID string) (*canvas.PersistedSnapshot, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: snapshotSK},
		},
	}
	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get snapshot", err)
	}
	if len(result.Item) == 0 {
		return nil, nil
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal snapshot", err)
	}

	snap := &canvas.PersistedSnapshot{
		ProjectID: item.ProjectID,
		Version:   item.Version,
	}
	if err := json.Unmarshal([]byte(item.Nodes), &snap.Nodes); err != nil {
		return nil, pkgerrors.NewDatabaseError("decode snapshot nodes", err)
	}
	if err := json.Unmarshal([]byte(item.Edges), &snap.Edges); err != nil {
		return nil, pkgerrors.NewDatabaseError("decode snapshot edges", err)
	}
	return snap, nil
}

// Delete removes the project's snapshot row.
func (r *SnapshotRepository) Delete(ctx context.Context, projectID string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: snapshotSK},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("delete snapshot", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
