package documents

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no document matches the lookup.
var ErrNotFound = errors.New("document not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Most extracted fields are nullable in the schema; COALESCE keeps the
// scan targets plain strings.
const documentColumns = `id, drive_file_id, drive_file_name,
COALESCE(drive_file_url, ''), COALESCE(drive_embed_url, ''),
COALESCE(numero_guia, ''), fecha_documento, COALESCE(proveedor, ''), COALESCE(direccion_destino, ''),
productos, cantidades, unidad_medida,
firmado, COALESCE(nombre_firmante, ''), COALESCE(observaciones, ''), COALESCE(numero_paginas, 0), COALESCE(codigo_interno, ''),
dummy_phones, COALESCE(transportista, ''), COALESCE(ruc, ''), COALESCE(placa, ''), ocr_status, created_at`

// Store provides document queries over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.DriveFileID, &d.DriveFileName, &d.DriveFileURL, &d.DriveEmbedURL,
		&d.NumeroGuia, &d.FechaDocumento, &d.Proveedor, &d.DireccionDestino,
		&d.Productos, &d.Cantidades, &d.UnidadMedida,
		&d.Firmado, &d.NombreFirmante, &d.Observaciones, &d.NumeroPaginas, &d.CodigoInterno,
		&d.DummyPhones, &d.Transportista, &d.RUC, &d.Placa, &d.OCRStatus, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *Store) queryDocuments(ctx context.Context, builder sq.SelectBuilder) ([]Document, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Get fetches one document by id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	sql, args, err := psql.Select(documentColumns).
		From("documentos").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanDocument(s.pool.QueryRow(ctx, sql, args...))
}

// GetByDriveID fetches one document by its storage file id.
func (s *Store) GetByDriveID(ctx context.Context, driveFileID string) (*Document, error) {
	sql, args, err := psql.Select(documentColumns).
		From("documentos").
		Where(sq.Eq{"drive_file_id": driveFileID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanDocument(s.pool.QueryRow(ctx, sql, args...))
}

// SearchQuery builds the filtered select for Search. Split out so
// tests can assert on the generated SQL without a live database.
func SearchQuery(f Filter) sq.SelectBuilder {
	b := psql.Select(documentColumns).
		From("documentos").
		OrderBy("created_at DESC")

	if f.Proveedor != "" {
		b = b.Where(sq.ILike{"proveedor": "%" + f.Proveedor + "%"})
	}
	if f.NumeroGuia != "" {
		b = b.Where(sq.ILike{"numero_guia": "%" + f.NumeroGuia + "%"})
	}
	if f.Producto != "" {
		b = b.Where("EXISTS (SELECT 1 FROM unnest(productos) AS p WHERE p ILIKE ?)", "%"+f.Producto+"%")
	}
	if f.Phone != "" {
		b = b.Where("? = ANY(dummy_phones)", f.Phone)
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"ocr_status": f.Status})
	}
	if f.Firmado != nil {
		b = b.Where(sq.Eq{"firmado": *f.Firmado})
	}
	if f.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"fecha_documento": *f.DateFrom})
	}
	if f.DateTo != nil {
		b = b.Where(sq.LtOrEq{"fecha_documento": *f.DateTo})
	}
	if f.Keyword != "" {
		kw := "%" + f.Keyword + "%"
		b = b.Where(sq.Or{
			sq.ILike{"numero_guia": kw},
			sq.ILike{"proveedor": kw},
			sq.ILike{"direccion_destino": kw},
			sq.ILike{"transportista": kw},
			sq.ILike{"observaciones": kw},
			sq.ILike{"raw_text": kw},
		})
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	b = b.Limit(uint64(limit))
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	return b
}

// Search returns documents matching the filter, newest first.
func (s *Store) Search(ctx context.Context, f Filter) ([]Document, error) {
	return s.queryDocuments(ctx, SearchQuery(f))
}

// List returns one unfiltered page of documents, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.Search(ctx, Filter{Limit: limit, Offset: offset})
}

// Recent returns the latest documents.
func (s *Store) Recent(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryDocuments(ctx, psql.Select(documentColumns).
		From("documentos").
		OrderBy("created_at DESC").
		Limit(uint64(limit)))
}

// Stats returns the aggregate counts in one round trip.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	const query = `
SELECT count(*),
       count(*) FILTER (WHERE ocr_status = 'completado'),
       count(*) FILTER (WHERE ocr_status = 'pendiente'),
       count(*) FILTER (WHERE ocr_status = 'error'),
       count(*) FILTER (WHERE firmado),
       count(*) FILTER (WHERE NOT firmado),
       count(DISTINCT proveedor) FILTER (WHERE proveedor IS NOT NULL AND proveedor <> '')
FROM documentos`

	var st Stats
	err := s.pool.QueryRow(ctx, query).Scan(
		&st.Total, &st.Completados, &st.Pendientes, &st.Errores, &st.Firmados, &st.SinFirmar, &st.Proveedores,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Proveedores returns the distinct supplier names for the filter
// dropdown.
func (s *Store) Proveedores(ctx context.Context) ([]string, error) {
	const query = `
SELECT DISTINCT proveedor FROM documentos
WHERE proveedor IS NOT NULL AND proveedor <> ''
ORDER BY proveedor`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PendingCount returns how many documents still wait for OCR.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM documentos WHERE ocr_status = $1`, StatusPending).Scan(&n)
	return n, err
}

// Delete removes one document. Returns ErrNotFound when the id does
// not exist so the caller can distinguish a double delete.
func (s *Store) Delete(ctx context.Context, id string) error {
	sql, args, err := psql.Delete("documentos").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
