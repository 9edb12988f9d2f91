package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type InterviewQuestionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, questions []*types.InterviewQuestion) ([]*types.InterviewQuestion, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.InterviewQuestion, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InterviewQuestion, error)
  CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
  DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type interviewQuestionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewInterviewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) InterviewQuestionRepo {
  return &interviewQuestionRepo{db: db, log: baseLog.With("repo", "InterviewQuestionRepo")}
}

func (r *interviewQuestionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.InterviewQuestion) ([]*types.InterviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(questions) == 0 {
    return []*types.InterviewQuestion{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
    return nil, err
  }
  return questions, nil
}

func (r *interviewQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.InterviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.InterviewQuestion
  if len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *interviewQuestionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InterviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.InterviewQuestion
  if userID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *interviewQuestionRepo) CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var count int64
  if userID == uuid.Nil {
    return 0, nil
  }
  if err := transaction.WithContext(ctx).
    Model(&types.InterviewQuestion{}).
    Where("user_id = ?", userID).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

// DeleteByUserID removes the user's question set. Dependent practices are
// removed first so the two-step delete never leaves orphaned attempts even
// on backends without foreign key enforcement.
func (r *interviewQuestionRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if userID == uuid.Nil {
    return nil
  }
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Delete(&types.InterviewPractice{}).Error; err != nil {
    return err
  }
  return transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Delete(&types.InterviewQuestion{}).Error
}

type InterviewPracticeRepo interface {
  Create(ctx context.Context, tx *gorm.DB, practices []*types.InterviewPractice) ([]*types.InterviewPractice, error)
  GetByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.InterviewPractice, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InterviewPractice, error)
  NextAttemptNumber(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (int, error)
  DeleteByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error
}

type interviewPracticeRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewInterviewPracticeRepo(db *gorm.DB, baseLog *logger.Logger) InterviewPracticeRepo {
  return &interviewPracticeRepo{db: db, log: baseLog.With("repo", "InterviewPracticeRepo")}
}

func (r *interviewPracticeRepo) Create(ctx context.Context, tx *gorm.DB, practices []*types.InterviewPractice) ([]*types.InterviewPractice, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(practices) == 0 {
    return []*types.InterviewPractice{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&practices).Error; err != nil {
    return nil, err
  }
  return practices, nil
}

func (r *interviewPracticeRepo) GetByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.InterviewPractice, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.InterviewPractice
  if len(questionIDs) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("question_id IN ?", questionIDs).
    Order("attempt_number ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *interviewPracticeRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InterviewPractice, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.InterviewPractice
  if userID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// NextAttemptNumber returns 1 for a question with no stored attempts and
// n+1 after n attempts for the same (user, question) pair.
func (r *interviewPracticeRepo) NextAttemptNumber(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (int, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.InterviewPractice{}).
    Where("user_id = ? AND question_id = ?", userID, questionID).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return int(count) + 1, nil
}

func (r *interviewPracticeRepo) DeleteByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(questionIDs) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("question_id IN ?", questionIDs).
    Delete(&types.InterviewPractice{}).Error
}
