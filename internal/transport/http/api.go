package http

import (
	"log/slog"
	"net/http"
	"strings"

	"boltvault/internal/domain/models"
	"boltvault/internal/events"
	"boltvault/internal/form"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/transport/http/dto/request"
	"boltvault/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SignUp godoc
// @Summary Create an account
// @Description Registers a user and returns a session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.CredentialsRequest true "Email and password"
// @Success 201 {object} response.Response{data=models.Session}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/auth/signup [post]
func (r *Routers) SignUp(c echo.Context) error {
	const op = "http.routers.SignUp"

	log := r.log.With(slog.String("op", op))

	var req request.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	s, err := r.Auth.SignUp(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("user signed up", slog.String("user_id", s.UserID.String()))

	return c.JSON(http.StatusCreated, response.SuccessResponse(s))
}

// Login godoc
// @Summary Log in
// @Description Signs in with email and password and returns a session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.CredentialsRequest true "Email and password"
// @Success 200 {object} response.Response{data=models.Session}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/auth/login [post]
func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(slog.String("op", op))

	var req request.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	s, err := r.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(s))
}

// Logout godoc
// @Summary Log out
// @Description Ends the session of the bearer token.
// @Tags auth
// @Produce json
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/auth/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	ctx := c.Request().Context()
	s := gateway.SessionFrom(ctx)

	if err := r.Auth.Logout(ctx, *s); err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	r.Events.Publish(events.Auth(s.UserID, false))

	return c.NoContent(http.StatusNoContent)
}

// ChangePassword godoc
// @Summary Change password
// @Description Sets a new password and revokes every other session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.ChangePasswordRequest true "New password and confirmation"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/auth/password [post]
func (r *Routers) ChangePassword(c echo.Context) error {
	const op = "http.routers.ChangePassword"

	var req request.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	ctx := c.Request().Context()
	if err := r.Auth.ChangePassword(ctx, *gateway.SessionFrom(ctx), req.Password, req.ConfirmPassword); err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListCharacters godoc
// @Summary List characters
// @Tags characters
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Character}
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/characters [get]
func (r *Routers) ListCharacters(c echo.Context) error {
	const op = "http.routers.ListCharacters"

	characters, err := r.Gateway.ListCharacters(c.Request().Context())
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(characters))
}

// GetCharacter godoc
// @Summary Get a character
// @Tags characters
// @Produce json
// @Param id path string true "Character ID" format(uuid)
// @Success 200 {object} response.Response{data=models.Character}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/characters/{id} [get]
func (r *Routers) GetCharacter(c echo.Context) error {
	const op = "http.routers.GetCharacter"

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	character, err := r.Gateway.GetCharacter(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(character))
}

// CreateCharacter godoc
// @Summary Create a character
// @Tags characters
// @Accept json
// @Produce json
// @Param request body models.CharacterInput true "Character"
// @Success 201 {object} response.Response{data=models.Character}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/characters [post]
func (r *Routers) CreateCharacter(c echo.Context) error {
	const op = "http.routers.CreateCharacter"

	in, ok, err := bindCharacter(c)
	if !ok {
		return err
	}

	ctx := c.Request().Context()
	character, err := r.Gateway.CreateCharacter(ctx, in)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	r.changed(c)

	return c.JSON(http.StatusCreated, response.SuccessResponse(character))
}

// UpdateCharacter godoc
// @Summary Update a character
// @Tags characters
// @Accept json
// @Produce json
// @Param id path string true "Character ID" format(uuid)
// @Param request body models.CharacterInput true "Character"
// @Success 200 {object} response.Response{data=models.Character}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/characters/{id} [put]
func (r *Routers) UpdateCharacter(c echo.Context) error {
	const op = "http.routers.UpdateCharacter"

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	in, ok, err := bindCharacter(c)
	if !ok {
		return err
	}

	character, err := r.Gateway.UpdateCharacter(c.Request().Context(), id, in)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	r.changed(c)

	return c.JSON(http.StatusOK, response.SuccessResponse(character))
}

// bindCharacter reads a character body. When ok is false the error
// response has already been written and err is its write result.
func bindCharacter(c echo.Context) (in models.CharacterInput, ok bool, err error) {
	if err := c.Bind(&in); err != nil {
		return in, false, c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := c.Validate(in); err != nil {
		return in, false, c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error()))
	}
	return in, true, nil
}

// DeleteCharacter godoc
// @Summary Delete a character
// @Description Deletes the character; its media posts stay and are unassigned.
// @Tags characters
// @Param id path string true "Character ID" format(uuid)
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/characters/{id} [delete]
func (r *Routers) DeleteCharacter(c echo.Context) error {
	const op = "http.routers.DeleteCharacter"

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	if err := r.Gateway.DeleteCharacter(c.Request().Context(), id); err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	r.changed(c)

	return c.NoContent(http.StatusNoContent)
}

// CharacterMedia godoc
// @Summary List the media of a character
// @Tags characters
// @Produce json
// @Param id path string true "Character ID" format(uuid)
// @Success 200 {object} response.Response{data=[]models.MediaItem}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/characters/{id}/media [get]
func (r *Routers) CharacterMedia(c echo.Context) error {
	const op = "http.routers.CharacterMedia"

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	items, err := r.Gateway.ListMediaByCharacter(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(items))
}

// ListMedia godoc
// @Summary List media
// @Description One page of the gallery under the given filters.
// @Tags media
// @Produce json
// @Param sortBy query string false "Sort field" Enums(created_at, name)
// @Param sortDirection query string false "Sort direction" Enums(asc, desc)
// @Param filterByType query string false "Media type" Enums(image, video)
// @Param filterByCharacter query string false "Character ID" format(uuid)
// @Param filterByTag query string false "Tag"
// @Param page query int false "Zero based page"
// @Success 200 {object} response.Response{data=models.MediaPage}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media [get]
func (r *Routers) ListMedia(c echo.Context) error {
	const op = "http.routers.ListMedia"

	var req request.ListMediaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error()))
	}

	spec := models.FilterSpec{
		SortBy:        models.SortField(req.SortBy),
		SortDirection: models.SortDirection(req.SortDirection),
		FilterByType:  models.MediaType(req.FilterByType),
		FilterByTag:   strings.TrimSpace(req.FilterByTag),
	}
	if req.FilterByCharacter != "" {
		id := uuid.MustParse(req.FilterByCharacter)
		spec.FilterByCharacter = &id
	}

	page, err := r.Gateway.ListMedia(c.Request().Context(), spec, req.Page)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(page))
}

// SearchMedia godoc
// @Summary Search media
// @Description Matches post titles, exact tags and character names.
// @Tags media
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} response.Response{data=[]models.MediaItem}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media/search [get]
func (r *Routers) SearchMedia(c echo.Context) error {
	const op = "http.routers.SearchMedia"

	term := strings.TrimSpace(c.QueryParam("q"))
	if term == "" {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", "Search term is required"))
	}

	items, err := r.Gateway.SearchMedia(c.Request().Context(), term)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(items))
}

// GetMedia godoc
// @Summary Get a media post
// @Tags media
// @Produce json
// @Param id path string true "Media ID" format(uuid)
// @Success 200 {object} response.Response{data=models.MediaItem}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media/{id} [get]
func (r *Routers) GetMedia(c echo.Context) error {
	const op = "http.routers.GetMedia"

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	item, err := r.Gateway.GetMedia(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(item))
}

// CreateMedia godoc
// @Summary Create a media post
// @Description Exactly one source: an uploaded file, a link or embed code.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "Source kind" Enums(upload, link, embed)
// @Param character_id formData string true "Character ID" format(uuid)
// @Param name formData string true "Post title"
// @Param tags formData string false "Comma separated tags"
// @Param file formData file false "File for upload"
// @Param url formData string false "URL for link"
// @Param type formData string false "Media type for link" Enums(image, video)
// @Param embed_code formData string false "Markup for embed"
// @Param embed_thumbnail formData string false "Thumbnail URL for embed"
// @Success 201 {object} response.Response{data=models.MediaItem}
// @Failure 400 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media [post]
func (r *Routers) CreateMedia(c echo.Context) error {
	const op = "http.routers.CreateMedia"

	log := r.log.With(slog.String("op", op))

	f, err := mediaForm(c, form.NewMediaForm())
	if err != nil {
		return r.fail(c, log, err)
	}

	item, err := r.Media.Create(c.Request().Context(), f)
	if err != nil {
		return r.fail(c, log, err)
	}

	r.changed(c)

	return c.JSON(http.StatusCreated, response.SuccessResponse(item))
}

// UpdateMedia godoc
// @Summary Update a media post
// @Description Switching away from an upload releases the stored file.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Media ID" format(uuid)
// @Param kind formData string true "Source kind" Enums(upload, link, embed)
// @Param character_id formData string true "Character ID" format(uuid)
// @Param name formData string true "Post title"
// @Param tags formData string false "Comma separated tags"
// @Param file formData file false "Replacement file"
// @Param url formData string false "URL for link"
// @Param type formData string false "Media type for link" Enums(image, video)
// @Param embed_code formData string false "Markup for embed"
// @Param embed_thumbnail formData string false "Thumbnail URL for embed"
// @Success 200 {object} response.Response{data=models.MediaItem}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media/{id} [put]
func (r *Routers) UpdateMedia(c echo.Context) error {
	const op = "http.routers.UpdateMedia"

	log := r.log.With(slog.String("op", op))

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	ctx := c.Request().Context()

	existing, err := r.Gateway.GetMedia(ctx, id)
	if err != nil {
		return r.fail(c, log, err)
	}

	f, err := mediaForm(c, form.EditMediaForm(existing))
	if err != nil {
		return r.fail(c, log, err)
	}

	item, err := r.Media.Update(ctx, id, f)
	if err != nil {
		return r.fail(c, log, err)
	}

	r.changed(c)

	return c.JSON(http.StatusOK, response.SuccessResponse(item))
}

// DeleteMedia godoc
// @Summary Delete a media post
// @Tags media
// @Param id path string true "Media ID" format(uuid)
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media/{id} [delete]
func (r *Routers) DeleteMedia(c echo.Context) error {
	const op = "http.routers.DeleteMedia"

	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	if err := r.Gateway.DeleteMedia(c.Request().Context(), id); err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	r.changed(c)

	return c.NoContent(http.StatusNoContent)
}

// DeleteMediaBatch godoc
// @Summary Delete several media posts
// @Description Deletes every listed post in one request.
// @Tags media
// @Accept json
// @Param request body request.BatchDeleteRequest true "Post IDs"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/media/batch-delete [post]
func (r *Routers) DeleteMediaBatch(c echo.Context) error {
	const op = "http.routers.DeleteMediaBatch"

	var req request.BatchDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error()))
	}

	if err := r.Gateway.DeleteMediaBatch(c.Request().Context(), req.IDs); err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	r.changed(c)

	return c.NoContent(http.StatusNoContent)
}

// UniqueTags godoc
// @Summary List tags
// @Description Every distinct tag of the user's media, sorted.
// @Tags media
// @Produce json
// @Success 200 {object} response.Response{data=[]string}
// @Security ApiKeyAuth
// @Router /api/v1/tags [get]
func (r *Routers) UniqueTags(c echo.Context) error {
	const op = "http.routers.UniqueTags"

	tags, err := r.Gateway.UniqueTags(c.Request().Context())
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tags))
}

// GetProfile godoc
// @Summary Get the profile
// @Tags profile
// @Produce json
// @Success 200 {object} response.Response{data=models.Profile}
// @Security ApiKeyAuth
// @Router /api/v1/profile [get]
func (r *Routers) GetProfile(c echo.Context) error {
	const op = "http.routers.GetProfile"

	profile, err := r.Gateway.GetProfile(c.Request().Context())
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(profile))
}

// UpdateProfile godoc
// @Summary Update the profile
// @Tags profile
// @Accept json
// @Produce json
// @Param request body models.Profile true "Profile"
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/profile [put]
func (r *Routers) UpdateProfile(c echo.Context) error {
	const op = "http.routers.UpdateProfile"

	var profile models.Profile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	if err := c.Validate(profile); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error()))
	}

	profile, err := r.Gateway.UpdateProfile(c.Request().Context(), profile)
	if err != nil {
		return r.fail(c, r.log.With(slog.String("op", op)), err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(profile))
}

// DeleteAccount godoc
// @Summary Delete the account
// @Description Removes the user with all characters, media and stored files, then ends every session.
// @Tags profile
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/account [delete]
func (r *Routers) DeleteAccount(c echo.Context) error {
	const op = "http.routers.DeleteAccount"

	log := r.log.With(slog.String("op", op))

	ctx := c.Request().Context()
	s := gateway.SessionFrom(ctx)

	if err := r.Gateway.DeleteAccount(ctx); err != nil {
		return r.fail(c, log, err)
	}

	if err := r.Auth.RevokeAll(ctx, *s); err != nil {
		log.Warn("failed to revoke sessions of deleted account", sl.Err(err))
	}

	r.Events.Publish(events.Auth(s.UserID, false))

	return c.NoContent(http.StatusNoContent)
}

// changed tells every open view of the caller that its data changed.
func (r *Routers) changed(c echo.Context) {
	if s := gateway.SessionFrom(c.Request().Context()); s != nil {
		r.Events.Publish(events.Data(s.UserID))
	}
}

func pathID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}
