package dummydb

import (
	"sync"

	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
)

type (
	DB struct {
		user       *userTable
		school     *schoolTable
		assignment *assignmentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		subjects map[string]*school.Subject
		classes  map[string]*school.Class
	}

	assignmentTable struct {
		sync.RWMutex
		assignments map[string]*assignment.Assignment
		// instances keyed by (assignment_id, student_id); the map IS the unique index
		instances map[instanceKey]*assignment.StudentAssignment
	}

	instanceKey struct {
		assignmentID string
		studentID    string
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		school: &schoolTable{subjects: make(map[string]*school.Subject), classes: make(map[string]*school.Class)},
		assignment: &assignmentTable{
			assignments: make(map[string]*assignment.Assignment),
			instances:   make(map[instanceKey]*assignment.StudentAssignment),
		},
	}
	return db, nil
}
