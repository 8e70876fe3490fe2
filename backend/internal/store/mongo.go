// ============================================================================
// backend/internal/store/mongo.go
// MongoDB-backed roster, course catalog and classwork storage
// ============================================================================

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/classwork"
	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

const queryTimeout = 10 * time.Second

// MongoStore reads and writes the harvested data set in MongoDB.
type MongoStore struct {
	db           *mongo.Database
	studentsCol  *mongo.Collection
	coursesCol   *mongo.Collection
	classworkCol *mongo.Collection
}

var _ grade.Source = (*MongoStore)(nil)

// NewMongoStore creates a new MongoStore instance
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:           db,
		studentsCol:  db.Collection(shared.StudentsCollection),
		coursesCol:   db.Collection(shared.CoursesCollection),
		classworkCol: db.Collection(shared.ClassworkCollection),
	}
}

// EnsureIndexes creates the lookup index on classwork.student_id.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.classworkCol.Indexes().CreateOne(indexCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}},
		Options: options.Index().SetName("student_id_1"),
	})
	if err != nil {
		return fmt.Errorf("create classwork index: %w", err)
	}
	return nil
}

// LoadCatalog reads every course document. Weights stored as integers or
// decimals are accepted.
func (s *MongoStore) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.coursesCol.Find(queryCtx, bson.M{}, shared.BuildFindOptions(0, "_id", 1))
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer cursor.Close(queryCtx)

	var courses []catalog.Course
	for cursor.Next(queryCtx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode course: %w", err)
		}
		course, err := documentToCourse(doc)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return catalog.New(courses...), nil
}

func (s *MongoStore) Students(ctx context.Context) ([]shared.Student, error) {
	cursor, err := s.studentsCol.Find(ctx, bson.M{}, shared.BuildFindOptions(0, "_id", 1))
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer cursor.Close(ctx)

	students := []shared.Student{}
	if err := cursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return students, nil
}

func (s *MongoStore) Student(ctx context.Context, studentID string) (shared.Student, error) {
	var student shared.Student
	err := shared.FindOneWithTimeout(ctx, s.studentsCol, bson.M{"_id": studentID}, &student, queryTimeout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return shared.Student{}, fmt.Errorf("%w: %s", grade.ErrStudentNotFound, studentID)
		}
		return shared.Student{}, fmt.Errorf("find student %s: %w", studentID, err)
	}
	return student, nil
}

// Classwork returns the student's rows in insertion order.
func (s *MongoStore) Classwork(ctx context.Context, studentID string) ([]classwork.Raw, error) {
	cursor, err := s.classworkCol.Find(ctx, bson.M{"student_id": studentID}, shared.BuildFindOptions(0, "_id", 1))
	if err != nil {
		return nil, fmt.Errorf("query classwork: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []shared.ClassworkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode classwork: %w", err)
	}

	raws := make([]classwork.Raw, 0, len(docs))
	for _, doc := range docs {
		raws = append(raws, toRaw(doc))
	}
	return raws, nil
}

// Counts reports the number of documents per collection.
func (s *MongoStore) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for name, col := range map[string]*mongo.Collection{
		shared.StudentsCollection:  s.studentsCol,
		shared.CoursesCollection:   s.coursesCol,
		shared.ClassworkCollection: s.classworkCol,
	} {
		n, err := shared.CountDocumentsWithTimeout(ctx, col, bson.M{}, queryTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// ReplaceFixtures swaps the stored data set for f, one collection at a time.
func (s *MongoStore) ReplaceFixtures(ctx context.Context, f *Fixtures) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid fixtures: %w", err)
	}

	harvestedAt := time.Now().UTC()

	students := make([]interface{}, 0, len(f.Students))
	for _, st := range f.Students {
		students = append(students, st)
	}
	courses := make([]interface{}, 0, len(f.Courses))
	for _, c := range f.Courses {
		courses = append(courses, c)
	}
	rows := make([]interface{}, 0, len(f.Classwork))
	for _, cw := range f.Classwork {
		if cw.HarvestedAt.IsZero() {
			cw.HarvestedAt = harvestedAt
		}
		rows = append(rows, cw)
	}

	for _, step := range []struct {
		col  *mongo.Collection
		docs []interface{}
	}{
		{s.studentsCol, students},
		{s.coursesCol, courses},
		{s.classworkCol, rows},
	} {
		if err := replaceCollection(ctx, step.col, step.docs); err != nil {
			return err
		}
	}
	return nil
}

func replaceCollection(ctx context.Context, col *mongo.Collection, docs []interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	deleted, err := col.DeleteMany(writeCtx, bson.M{})
	if err != nil {
		return fmt.Errorf("clear %s: %w", col.Name(), err)
	}
	if len(docs) == 0 {
		log.Printf("INFO: Cleared %s (%d removed)", col.Name(), deleted.DeletedCount)
		return nil
	}

	if _, err := col.InsertMany(writeCtx, docs); err != nil {
		return fmt.Errorf("insert %s: %w", col.Name(), err)
	}
	log.Printf("INFO: Replaced %s (%d removed, %d inserted)", col.Name(), deleted.DeletedCount, len(docs))
	return nil
}

func documentToCourse(doc bson.M) (catalog.Course, error) {
	id, err := shared.GetString(doc["_id"])
	if err != nil {
		return catalog.Course{}, fmt.Errorf("course _id: %w", err)
	}
	name, err := shared.GetString(doc["name"])
	if err != nil {
		return catalog.Course{}, fmt.Errorf("course %s name: %w", id, err)
	}
	categories, err := shared.GetFloatMap(doc["categories"])
	if err != nil {
		return catalog.Course{}, fmt.Errorf("course %s categories: %w", id, err)
	}
	return catalog.Course{ID: id, Name: name, Categories: categories}, nil
}
