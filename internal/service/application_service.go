package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"
	"github.com/swiftmeta/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

var digitsOnly13 = regexp.MustCompile(`^\d{13}$`)

// ApplicationFile 申请材料文件
type ApplicationFile struct {
	Filename string
	Data     []byte
}

// ApplicationInput 报名申请参数
type ApplicationInput struct {
	FirstName     string
	LastName      string
	IDNumber      string
	Gender        string
	Email         string
	Phone         string
	Location      string
	Qualification string
	Experience    string
	CurrentRole   string
	Portfolio     string
	Consent       bool
	Files         map[string]ApplicationFile
}

// ApplicationSummary 公开查询返回的进度摘要
type ApplicationSummary struct {
	FirstName string    `json:"first_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ApplicationService 报名申请
type ApplicationService struct {
	cfg      config.UploadConfig
	appRepo  repository.ApplicationRepository
	store    storage.Store
	notifier *NotificationService
}

// NewApplicationService 创建报名申请服务
func NewApplicationService(cfg config.UploadConfig, appRepo repository.ApplicationRepository, store storage.Store, notifier *NotificationService) *ApplicationService {
	return &ApplicationService{cfg: cfg, appRepo: appRepo, store: store, notifier: notifier}
}

// ReadDocument 读取表单文件并校验大小
func (s *ApplicationService) ReadDocument(file *multipart.FileHeader) (ApplicationFile, error) {
	data, err := readMultipartFile(file, s.cfg.DocumentMaxSize)
	if err != nil {
		return ApplicationFile{}, err
	}
	return ApplicationFile{Filename: file.Filename, Data: data}, nil
}

// Submit 校验申请、并发上传材料并入库
func (s *ApplicationService) Submit(ctx context.Context, input ApplicationInput) (*models.Application, error) {
	app, err := s.buildApplication(input)
	if err != nil {
		return nil, err
	}
	contentTypes, err := s.checkDocuments(input.Files)
	if err != nil {
		return nil, err
	}

	phone := ""
	if app.Phone != nil {
		phone = *app.Phone
	}
	existing, err := s.appRepo.FindDuplicate(app.Email, app.IDNumber, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{Field: duplicateApplicationField(existing, app)}
	}

	documents, err := s.uploadDocuments(ctx, input.Files, contentTypes)
	if err != nil {
		return nil, err
	}
	app.Documents = datatypes.NewJSONType(documents)

	if err := s.appRepo.Create(app); err != nil {
		s.cleanupDocuments(documents)
		if repository.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: repository.UniqueViolationColumn(err)}
		}
		return nil, err
	}
	logger.Infow("application_received", "application_id", app.ID, "documents", len(documents))
	s.notifier.Dispatch(eventApplicationNew, applicationReceivedMessage(app))
	return app, nil
}

func (s *ApplicationService) buildApplication(input ApplicationInput) (*models.Application, error) {
	firstName := strings.TrimSpace(input.FirstName)
	if err := requireLength("first_name", firstName, 1, 80); err != nil {
		return nil, err
	}
	lastName := strings.TrimSpace(input.LastName)
	if err := requireLength("last_name", lastName, 1, 80); err != nil {
		return nil, err
	}
	idNumber := strings.TrimSpace(input.IDNumber)
	if !ValidSAIDNumber(idNumber) {
		return nil, invalidField("id_number", "must be a valid 13-digit South African ID number")
	}
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	var phone *string
	if raw := strings.TrimSpace(input.Phone); raw != "" {
		normalized, err := NormalizePhone(raw)
		if err != nil {
			return nil, err
		}
		phone = &normalized
	}
	gender := strings.ToLower(strings.TrimSpace(input.Gender))
	if err := requireLength("gender", gender, 0, 16); err != nil {
		return nil, err
	}
	location := strings.TrimSpace(input.Location)
	if err := requireLength("location", location, 1, 120); err != nil {
		return nil, err
	}
	qualification := strings.TrimSpace(input.Qualification)
	if err := requireLength("qualification", qualification, 1, 200); err != nil {
		return nil, err
	}
	experience := strings.TrimSpace(input.Experience)
	if err := requireLength("experience", experience, 1, 5000); err != nil {
		return nil, err
	}
	currentRole := strings.TrimSpace(input.CurrentRole)
	if err := requireLength("current_role", currentRole, 0, 120); err != nil {
		return nil, err
	}
	portfolio := strings.TrimSpace(input.Portfolio)
	if portfolio != "" && !isHTTPURL(portfolio) {
		return nil, invalidField("portfolio", "must be an http(s) URL")
	}
	if !input.Consent {
		return nil, invalidField("consent", "must be accepted")
	}

	return &models.Application{
		FirstName:     firstName,
		LastName:      lastName,
		IDNumber:      idNumber,
		Gender:        gender,
		Email:         email,
		Phone:         phone,
		Location:      location,
		Qualification: qualification,
		Experience:    experience,
		CurrentRole:   currentRole,
		Portfolio:     portfolio,
		Consent:       true,
		Status:        constants.ApplicationStatusPending,
	}, nil
}

func (s *ApplicationService) checkDocuments(files map[string]ApplicationFile) (map[string]*mimetype.MIME, error) {
	contentTypes := make(map[string]*mimetype.MIME, len(files))
	for slot, file := range files {
		if !isDocumentSlot(slot) {
			return nil, invalidField(slot, "unexpected document field")
		}
		if len(file.Data) == 0 {
			return nil, invalidField(slot, "file is empty")
		}
		if s.cfg.DocumentMaxSize > 0 && int64(len(file.Data)) > s.cfg.DocumentMaxSize {
			return nil, fmt.Errorf("%w: %s exceeds %d MB", ErrFileTooLarge, slot, s.cfg.DocumentMaxSize/1024/1024)
		}
		mtype := mimetype.Detect(file.Data)
		if !isAllowedMIME(mtype, s.cfg.DocumentTypes) {
			return nil, fmt.Errorf("%w: %s is %s", ErrFileTypeNotAllowed, slot, mtype.String())
		}
		contentTypes[slot] = mtype
	}
	return contentTypes, nil
}

func (s *ApplicationService) uploadDocuments(ctx context.Context, files map[string]ApplicationFile, contentTypes map[string]*mimetype.MIME) (map[string]models.ApplicationDocument, error) {
	documents := make(map[string]models.ApplicationDocument, len(files))
	if len(files) == 0 {
		return documents, nil
	}

	folder := "applications/" + uuid.NewString()
	results := make([]models.ApplicationDocument, len(constants.ApplicationDocumentSlots))
	uploaded := make([]bool, len(constants.ApplicationDocumentSlots))

	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range constants.ApplicationDocumentSlots {
		file, ok := files[slot]
		if !ok {
			continue
		}
		g.Go(func() error {
			ext := strings.ToLower(filepath.Ext(file.Filename))
			if ext == "" {
				ext = contentTypes[slot].Extension()
			}
			obj, err := s.store.Upload(gctx, folder+"/"+slot+ext, file.Data, contentTypes[slot].String())
			if err != nil {
				return fmt.Errorf("%s: %w", slot, err)
			}
			results[i] = models.ApplicationDocument{Name: file.Filename, URL: obj.URL, PublicID: obj.ID}
			uploaded[i] = true
			return nil
		})
	}
	err := g.Wait()

	for i, slot := range constants.ApplicationDocumentSlots {
		if uploaded[i] {
			documents[slot] = results[i]
		}
	}
	if err != nil {
		logger.Warnw("application_document_upload_failed", "error", err)
		s.cleanupDocuments(documents)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return documents, nil
}

func (s *ApplicationService) cleanupDocuments(documents map[string]models.ApplicationDocument) {
	if len(documents) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for slot, doc := range documents {
		if err := s.store.Delete(ctx, doc.PublicID); err != nil {
			logger.Warnw("application_document_cleanup_failed", "slot", slot, "public_id", doc.PublicID, "error", err)
		}
	}
}

// Search 按邮箱或身份证号查询申请进度
func (s *ApplicationService) Search(query string) (*ApplicationSummary, error) {
	query = strings.TrimSpace(query)
	var email, idNumber string
	switch {
	case strings.Contains(query, "@"):
		normalized, err := NormalizeEmail(query)
		if err != nil {
			return nil, err
		}
		email = normalized
	case digitsOnly13.MatchString(query):
		idNumber = query
	default:
		return nil, invalidField("query", "please provide a valid email address or 13-digit ID number")
	}

	app, err := s.appRepo.FindByEmailOrIDNumber(email, idNumber)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	return &ApplicationSummary{FirstName: app.FirstName, Status: app.Status, CreatedAt: app.CreatedAt}, nil
}

// List 管理端分页列表
func (s *ApplicationService) List(filter repository.ApplicationListFilter) ([]models.Application, int64, error) {
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize, 100)
	if filter.Status != "" {
		filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
		if !isApplicationStatus(filter.Status) {
			return nil, 0, ErrStatusInvalid
		}
	}
	return s.appRepo.List(filter)
}

// UpdateStatus 更新申请状态并通知申请人
func (s *ApplicationService) UpdateStatus(id uint, status string) (*models.Application, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !isApplicationStatus(status) {
		return nil, ErrStatusInvalid
	}
	app, err := s.appRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.Status == status {
		return app, nil
	}
	if err := s.appRepo.UpdateStatus(id, status); err != nil {
		return nil, err
	}
	app.Status = status
	logger.Infow("application_status_updated", "application_id", app.ID, "status", status)
	s.notifier.Dispatch(eventApplicationStatus, applicationStatusMessage(app))
	return app, nil
}

func duplicateApplicationField(existing, app *models.Application) string {
	switch {
	case existing.Email == app.Email:
		return "email"
	case existing.IDNumber == app.IDNumber:
		return "id_number"
	default:
		return "phone"
	}
}

func isDocumentSlot(slot string) bool {
	for _, candidate := range constants.ApplicationDocumentSlots {
		if candidate == slot {
			return true
		}
	}
	return false
}

func isApplicationStatus(status string) bool {
	switch status {
	case constants.ApplicationStatusPending, constants.ApplicationStatusSuccessful,
		constants.ApplicationStatusUnsuccessful, constants.ApplicationStatusSecondIntake:
		return true
	}
	return false
}
