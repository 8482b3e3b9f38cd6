package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/canvas"
	"canvas-backend/domain/project"
	pkgerrors "canvas-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ProjectRepository implements ports.ProjectRepository on a DynamoDB
// single-table layout. Project records live under PK "PROJECT#<id>",
// SK "METADATA"; the recency index keys them by user with an UPDATED#
// sort key so listing by recency is a single reverse query.
type ProjectRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewProjectRepository creates a new ProjectRepository. indexName is
// the user-recency GSI queried by ListByUser.
func NewProjectRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) ports.ProjectRepository {
	return &ProjectRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// projectItem represents the DynamoDB item structure for a project.
type projectItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	GSI1PK       string  `dynamodbav:"GSI1PK"`
	GSI1SK       string  `dynamodbav:"GSI1SK"`
	EntityType   string  `dynamodbav:"EntityType"`
	ProjectID    string  `dynamodbav:"ProjectID"`
	UserID       string  `dynamodbav:"UserID"`
	Name         string  `dynamodbav:"Name"`
	Description  string  `dynamodbav:"Description"`
	ViewportX    float64 `dynamodbav:"ViewportX"`
	ViewportY    float64 `dynamodbav:"ViewportY"`
	ViewportZoom float64 `dynamodbav:"ViewportZoom"`
	CreatedAt    string  `dynamodbav:"CreatedAt"`
	UpdatedAt    string  `dynamodbav:"UpdatedAt"`
	LastOpenedAt string  `dynamodbav:"LastOpenedAt,omitempty"`
}

func projectPK(projectID string) string { return fmt.Sprintf("PROJECT#%s", projectID) }
func userGSIPK(userID string) string    { return fmt.Sprintf("USER#%s", userID) }
func updatedGSISK(t time.Time) string {
	return fmt.Sprintf("UPDATED#%s", t.UTC().Format(time.RFC3339Nano))
}

const projectMetadataSK = "METADATA"

// Create persists a new project record. An existing record with the
// same id is a conflict, not an overwrite.
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	item := projectItem{
		PK:           projectPK(p.ID),
		SK:           projectMetadataSK,
		GSI1PK:       userGSIPK(p.UserID),
		GSI1SK:       updatedGSISK(p.UpdatedAt),
		EntityType:   "PROJECT",
		ProjectID:    p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		Description:  p.Description,
		ViewportX:    p.Viewport.X,
		ViewportY:    p.Viewport.Y,
		ViewportZoom: p.Viewport.Zoom,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !p.LastOpenedAt.IsZero() {
		item.LastOpenedAt = p.LastOpenedAt.UTC().Format(time.RFC3339Nano)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal project", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return pkgerrors.NewConflictError("project already exists: " + p.ID)
		}
		return pkgerrors.NewDatabaseError("create project", err)
	}

	r.logger.Debug("project created",
		zap.String("projectID", p.ID),
		zap.String("userID", p.UserID),
	)
	return nil
}

// GetByID retrieves a project by its id.
func (r *ProjectRepository) GetByID(ctx context.Context, projectID string) (*project.Project, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: projectMetadataSK},
		},
	}
	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get project", err)
	}
	if len(result.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("project")
	}

	var item projectItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal project", err)
	}
	return item.toProject(), nil
}

// ListByUser retrieves a user's projects ordered by recency. The
// index's UPDATED# sort key makes this a single descending query.
func (r *ProjectRepository) ListByUser(ctx context.Context, userID string) ([]*project.Project, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(userGSIPK(userID))).
		And(expression.Key("GSI1SK").BeginsWith("UPDATED#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build project query", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list projects", err)
	}

	projects := make([]*project.Project, 0, len(result.Items))
	for _, raw := range result.Items {
		var item projectItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("skipping unreadable project item", zap.Error(err))
			continue
		}
		projects = append(projects, item.toProject())
	}
	return projects, nil
}

// UpdateViewport writes the project's camera state, bumps the
// modification timestamp, and keeps the recency index key in step.
func (r *ProjectRepository) UpdateViewport(ctx context.Context, projectID string, v canvas.Viewport, updatedAt time.Time) error {
	stamp := updatedAt.UTC().Format(time.RFC3339Nano)
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: projectMetadataSK},
		},
		UpdateExpression:    aws.String("SET ViewportX = :x, ViewportY = :y, ViewportZoom = :zoom, UpdatedAt = :updatedAt, GSI1SK = :gsi1sk"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":x":         &types.AttributeValueMemberN{Value: formatFloat(v.X)},
			":y":         &types.AttributeValueMemberN{Value: formatFloat(v.Y)},
			":zoom":      &types.AttributeValueMemberN{Value: formatFloat(v.Zoom)},
			":updatedAt": &types.AttributeValueMemberS{Value: stamp},
			":gsi1sk":    &types.AttributeValueMemberS{Value: updatedGSISK(updatedAt)},
		},
	}
	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return pkgerrors.NewNotFoundError("project")
		}
		return pkgerrors.NewDatabaseError("update project viewport", err)
	}
	return nil
}

// TouchLastOpened stamps the project's last-opened timestamp.
func (r *ProjectRepository) TouchLastOpened(ctx context.Context, projectID string, at time.Time) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: projectMetadataSK},
		},
		UpdateExpression:    aws.String("SET LastOpenedAt = :at"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		},
	}
	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return pkgerrors.NewNotFoundError("project")
		}
		return pkgerrors.NewDatabaseError("touch project", err)
	}
	return nil
}

// Delete removes the project record. The caller cascades to the
// snapshot row.
func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: projectMetadataSK},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("delete project", err)
	}

	r.logger.Debug("project deleted", zap.String("projectID", projectID))
	return nil
}

func (i projectItem) toProject() *project.Project {
	p := &project.Project{
		ID:          i.ProjectID,
		UserID:      i.UserID,
		Name:        i.Name,
		Description: i.Description,
		Viewport: canvas.Viewport{
			X:    i.ViewportX,
			Y:    i.ViewportY,
			Zoom: i.ViewportZoom,
		},
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, i.CreatedAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, i.UpdatedAt)
	if i.LastOpenedAt != "" {
		p.LastOpenedAt, _ = time.Parse(time.RFC3339Nano, i.LastOpenedAt)
	}
	return p
}
