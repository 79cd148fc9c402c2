package models

import "time"

// Notification — уведомление курса.
type Notification struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CourseID  string    `json:"courseId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Instructor — преподаватель.
type Instructor struct {
	ID             string   `json:"_id,omitempty"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	Courses        []string `json:"courses,omitempty"`
}

// OfflineGrade — оценка за очный экзамен.
type OfflineGrade struct {
	ID          string    `json:"_id,omitempty"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName,omitempty"`
	GroupID     string    `json:"groupId,omitempty"`
	ExamTitle   string    `json:"examTitle"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"maxScore"`
	ExamDate    time.Time `json:"examDate"`
	Notes       string    `json:"notes,omitempty"`
}

// UploadResult — итог загрузки оценок из Excel.
type UploadResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Group — учебная группа.
type Group struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Instructor string `json:"instructor,omitempty"`
	Students   int    `json:"studentsCount,omitempty"`
}
