package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/dmfs/internal/imagestore"
	"github.com/samcharles93/dmfs/internal/logger"
	"github.com/samcharles93/dmfs/pkg/dmfs"
)

// Server exposes one image read-only over HTTP.
type Server struct {
	store *imagestore.Store
	log   logger.Logger
	// id changes every time an image is served, so clients can tell reloads apart.
	id string
}

type imageResponse struct {
	ID          string `json:"id"`
	Version     uint32 `json:"version"`
	ObjectCount int    `json:"object_count"`
	Size        int    `json:"size"`
}

type objectResponse struct {
	imagestore.ObjectInfo
	Digest string `json:"digest,omitempty"`
}

type listResponse struct {
	Object string                  `json:"object"`
	Data   []imagestore.ObjectInfo `json:"data"`
}

func New(store *imagestore.Store, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{store: store, log: log, id: uuid.NewString()}
}

// ID is the instance id reported by GET /v1/image.
func (s *Server) ID() string { return s.id }

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/image", s.handleImage)
	e.GET("/v1/objects", s.handleListObjects)
	e.GET("/v1/objects/:name", s.handleGetObject)
	e.GET("/v1/objects/:name/content", s.handleGetContent)
}

func (s *Server) handleImage(c *echo.Context) error {
	return c.JSON(http.StatusOK, imageResponse{
		ID:          s.id,
		Version:     s.store.Version(),
		ObjectCount: s.store.Len(),
		Size:        s.store.Size(),
	})
}

func (s *Server) handleListObjects(c *echo.Context) error {
	objs := s.store.Objects()
	if q := c.QueryParam("type"); q != "" {
		typ, err := dmfs.ParseObjectType(q)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		objs = s.store.ByType(typ)
	}
	if objs == nil {
		objs = []imagestore.ObjectInfo{}
	}
	return c.JSON(http.StatusOK, listResponse{Object: "list", Data: objs})
}

func (s *Server) handleGetObject(c *echo.Context) error {
	name := c.Param("name")
	info, err := s.store.Lookup(name)
	if err != nil {
		return s.lookupError(c, name, err)
	}
	digest, err := s.store.Digest(name)
	if err != nil {
		return s.lookupError(c, name, err)
	}
	return c.JSON(http.StatusOK, objectResponse{ObjectInfo: info, Digest: digest})
}

func (s *Server) handleGetContent(c *echo.Context) error {
	name := c.Param("name")
	data, err := s.store.Content(name)
	if err != nil {
		return s.lookupError(c, name, err)
	}
	digest, err := s.store.Digest(name)
	if err != nil {
		return s.lookupError(c, name, err)
	}

	etag := `"` + digest + `"`
	res := c.Response()
	res.Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		res.WriteHeader(http.StatusNotModified)
		return nil
	}

	res.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	res.Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	res.WriteHeader(http.StatusOK)
	_, err = res.Write(data)
	return err
}

func (s *Server) lookupError(c *echo.Context, name string, err error) error {
	if errors.Is(err, imagestore.ErrObjectNotFound) {
		return writeNotFound(c, "object not found: "+name)
	}
	s.log.Error("object lookup failed", "name", name, "error", err)
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
}
