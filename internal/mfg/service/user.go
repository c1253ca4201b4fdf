package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
)

// UserService 用户管理
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// List 非管理员只能看到自己
func (s *UserService) List(ctx context.Context, page, pageSize int, filters map[string]string, actor Actor) ([]entity.User, int64, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	if !actor.IsAdmin() {
		filters["id"] = actor.UserID
	}
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *UserService) Get(ctx context.Context, id string, actor Actor) (*entity.User, error) {
	if !actor.IsAdmin() && id != actor.UserID {
		return nil, repository.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Email           string  `json:"email" binding:"required,email"`
	Password        string  `json:"password" binding:"required"`
	PasswordConfirm string  `json:"password_confirm" binding:"required"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Role            string  `json:"role"`
	Phone           string  `json:"phone"`
	Department      string  `json:"department"`
	EmployeeID      *string `json:"employee_id"`
	IsActive        *bool   `json:"is_active"`
}

func validatePassword(password, confirm string) error {
	if password != confirm {
		return invalid("Password fields didn't match.")
	}
	if len(password) < minPasswordLength {
		return invalid("This password is too short. It must contain at least %d characters.", minPasswordLength)
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest, actor Actor) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = entity.RoleSales
	}
	if !entity.IsValidRole(role) {
		return nil, invalid("\"%s\" is not a valid choice.", role)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		ID:           entity.NewID(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Phone:        req.Phone,
		Department:   req.Department,
		EmployeeID:   blankToNil(req.EmployeeID),
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("A user with that email or employee id already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUserRequest 部分更新，角色与启用状态仅管理员可改
type UpdateUserRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	EmployeeID *string `json:"employee_id"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
}

func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest, actor Actor) (*entity.User, error) {
	user, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (req.Role != nil || req.IsActive != nil) {
		return nil, ErrForbidden
	}
	applyProfile(user, req.FirstName, req.LastName, req.Phone, req.Department)
	if req.EmployeeID != nil {
		user.EmployeeID = blankToNil(req.EmployeeID)
	}
	if req.Role != nil {
		if !entity.IsValidRole(*req.Role) {
			return nil, invalid("\"%s\" is not a valid choice.", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	return user, s.save(ctx, user)
}

// ProfileRequest 当前用户可修改的资料
type ProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, req *ProfileRequest) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	applyProfile(user, req.FirstName, req.LastName, req.Phone, req.Department)
	return user, s.save(ctx, user)
}

func applyProfile(user *entity.User, first, last, phone, dept *string) {
	if first != nil {
		user.FirstName = *first
	}
	if last != nil {
		user.LastName = *last
	}
	if phone != nil {
		user.Phone = *phone
	}
	if dept != nil {
		user.Department = *dept
	}
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

func (s *UserService) ChangePassword(ctx context.Context, actor Actor, req *ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(user.PasswordHash, req.OldPassword) {
		return invalid("Old password is incorrect.")
	}
	if err := validatePassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		return err
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.save(ctx, user)
}

// ResolveUser 实现 middleware.UserResolver，每个请求读取当前角色与启用状态
func (s *UserService) ResolveUser(ctx context.Context, userID string) (string, bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.Role, user.IsActive, nil
}

// ChangeRole 管理员修改角色
func (s *UserService) ChangeRole(ctx context.Context, id, role string, actor Actor) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !entity.IsValidRole(role) {
		return nil, invalid("Invalid role specified.")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	return user, s.save(ctx, user)
}

// ToggleActive 管理员启用/停用账号
func (s *UserService) ToggleActive(ctx context.Context, id string, actor Actor) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	return user, s.save(ctx, user)
}

func (s *UserService) Delete(ctx context.Context, id string, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if id == actor.UserID {
		return invalid("You cannot delete your own account.")
	}
	return s.repo.Delete(ctx, id)
}

// EnsureAdmin 启动时创建初始管理员，已存在则跳过
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &entity.User{
		ID:           entity.NewID(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		FirstName:    "Admin",
		Role:         entity.RoleAdmin,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func (s *UserService) save(ctx context.Context, user *entity.User) error {
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return invalid("A user with that employee id already exists.")
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
