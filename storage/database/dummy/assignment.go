package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	for i := range a.Questions {
		a.Questions[i].ID = uuid.New().String()
		for j := range a.Questions[i].Options {
			a.Questions[i].Options[j].ID = uuid.New().String()
		}
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) QueryAssignmentsByTeacher(_ context.Context, teacherID string) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if a.TeacherID == teacherID {
			assignments = append(assignments, *a)
		}
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) GetOwnedAssignment(_ context.Context, id, teacherID string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok && a.TeacherID == teacherID {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) FindAssigned(_ context.Context, assignmentID, _ string, studentIDs []string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assigned := make([]string, 0)
	for _, studentID := range studentIDs {
		if _, ok := repo.db.instances[instanceKey{assignmentID, studentID}]; ok {
			assigned = append(assigned, studentID)
		}
	}
	return assigned, nil
}

func (repo *assignmentRepository) BulkCreateInstances(_ context.Context, instances []assignment.StudentAssignment) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var created int
	for _, inst := range instances {
		key := instanceKey{inst.AssignmentID, inst.StudentID}
		if _, ok := repo.db.instances[key]; ok {
			continue // unique index: skip duplicates
		}
		inst := inst
		inst.ID = uuid.New().String()
		repo.db.instances[key] = &inst
		created++
	}
	return created, nil
}

func (repo *assignmentRepository) QueryInstancesByStudent(_ context.Context, studentID string) ([]assignment.StudentAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	instances := make([]assignment.StudentAssignment, 0)
	for key, inst := range repo.db.instances {
		if key.studentID == studentID {
			instances = append(instances, *inst)
		}
	}
	return instances, nil
}

func (repo *assignmentRepository) QueryInstancesByClass(_ context.Context, classID string) ([]assignment.StudentAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	instances := make([]assignment.StudentAssignment, 0)
	for _, inst := range repo.db.instances {
		if inst.ClassID == classID {
			instances = append(instances, *inst)
		}
	}
	return instances, nil
}
