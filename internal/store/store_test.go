package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"patient-caller-backend/internal/model"
	"patient-caller-backend/internal/testsupport"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

var patientColumns = []string{"id", "cinro", "nombre", "apellido", "created_at"}

func TestGormStore_SQL(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		run              func(s Store) error
		expectedErr      error
	}{
		{
			name: "list orders by id descending",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pacientes" ORDER BY id DESC`)).
					WillReturnRows(sqlmock.NewRows(patientColumns).
						AddRow(2, "222", "LUIS", "PEREZ", now).
						AddRow(1, "111", "ANA", "LOPEZ", now))
			},
			run: func(s Store) error {
				patients, err := s.ListPatients(context.Background())
				if err == nil {
					assert.Len(t, patients, 2)
					assert.Equal(t, int64(2), patients[0].ID)
				}
				return err
			},
		},
		{
			name: "create returns generated id",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "pacientes"`)).
					WithArgs("111", "ANA", "LOPEZ", Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectCommit()
			},
			run: func(s Store) error {
				p := model.Patient{CINro: "111", Nombre: "ANA", Apellido: "LOPEZ"}
				err := s.CreatePatient(context.Background(), &p)
				assert.Equal(t, int64(1), p.ID)
				return err
			},
		},
		{
			name: "call unknown patient rolls back without touching the pointer",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT \* FROM "pacientes" WHERE "pacientes"."id" = \$1 ORDER BY "pacientes"."id" LIMIT \$[0-9]+`).
					WithArgs(42, 1).
					WillReturnRows(sqlmock.NewRows(patientColumns))
				mock.ExpectRollback()
			},
			run: func(s Store) error {
				_, err := s.SetCalled(context.Background(), 42, now)
				return err
			},
			expectedErr: ErrNotFound,
		},
		{
			name: "call upserts the single pointer row",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT \* FROM "pacientes" WHERE "pacientes"."id" = \$1`).
					WithArgs(7, 1).
					WillReturnRows(sqlmock.NewRows(patientColumns).AddRow(7, "111", "ANA", "LOPEZ", now))
				mock.ExpectExec(`INSERT INTO "llamado_actual" .* ON CONFLICT \("slot"\) DO UPDATE SET`).
					WithArgs(model.CalledSlot, 7, Any{}).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			run: func(s Store) error {
				p, err := s.SetCalled(context.Background(), 7, now)
				assert.Equal(t, "ANA", p.Nombre)
				return err
			},
		},
		{
			name: "attend archives, deletes and clears the pointer in one transaction",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT \* FROM "pacientes" WHERE "pacientes"."id" = \$1`).
					WithArgs(7, 1).
					WillReturnRows(sqlmock.NewRows(patientColumns).AddRow(7, "111", "ANA", "LOPEZ", now))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "atendidos"`)).
					WithArgs(7, "111", "ANA", "LOPEZ", Any{}, model.StatusAttended).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "pacientes" WHERE "pacientes"."id" = $1`)).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "llamado_actual" SET "patient_id"=$1 WHERE slot = $2 AND patient_id = $3`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			run: func(s Store) error {
				rec, err := s.MarkAttended(context.Background(), 7, now)
				assert.Equal(t, model.StatusAttended, rec.Status)
				return err
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			err := tc.run(store)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_CalledPointerLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testsupport.NewSQLiteDB(t))

	ana := model.Patient{CINro: "111", Nombre: "ANA", Apellido: "LOPEZ"}
	luis := model.Patient{CINro: "222", Nombre: "LUIS", Apellido: "PEREZ"}
	require.NoError(t, s.CreatePatient(ctx, &ana))
	require.NoError(t, s.CreatePatient(ctx, &luis))

	called, err := s.CurrentlyCalled(ctx)
	require.NoError(t, err)
	assert.Nil(t, called, "nobody is called before the first call")

	_, err = s.SetCalled(ctx, ana.ID, time.Now())
	require.NoError(t, err)
	_, err = s.SetCalled(ctx, luis.ID, time.Now())
	require.NoError(t, err)

	called, err = s.CurrentlyCalled(ctx)
	require.NoError(t, err)
	require.NotNil(t, called)
	assert.Equal(t, luis.ID, called.ID, "the second call replaces the pointer")

	var pointers int64
	require.NoError(t, countRows(s, &model.CalledPointer{}, &pointers))
	assert.Equal(t, int64(1), pointers, "the pointer never accumulates rows")

	// Attending a patient that is not the called one leaves the pointer alone.
	_, err = s.MarkAttended(ctx, ana.ID, time.Now())
	require.NoError(t, err)
	called, err = s.CurrentlyCalled(ctx)
	require.NoError(t, err)
	require.NotNil(t, called)
	assert.Equal(t, luis.ID, called.ID)

	_, err = s.MarkAttended(ctx, luis.ID, time.Now())
	require.NoError(t, err)
	called, err = s.CurrentlyCalled(ctx)
	require.NoError(t, err)
	assert.Nil(t, called)

	_, err = s.MarkAttended(ctx, luis.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_DanglingPointerReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	gormDB := testsupport.NewSQLiteDB(t)
	s := NewGormStore(gormDB)

	p := model.Patient{CINro: "111", Nombre: "ANA", Apellido: "LOPEZ"}
	require.NoError(t, s.CreatePatient(ctx, &p))
	_, err := s.SetCalled(ctx, p.ID, time.Now())
	require.NoError(t, err)

	require.NoError(t, gormDB.Delete(&model.Patient{}, p.ID).Error)

	called, err := s.CurrentlyCalled(ctx)
	require.NoError(t, err)
	assert.Nil(t, called)
}

func TestGormStore_ListAttendedRange(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testsupport.NewSQLiteDB(t))

	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{
		base.Add(-time.Minute),               // 9th, 23:59
		base,                                 // 10th, 00:00
		base.Add(12 * time.Hour),             // 10th, noon
		base.Add(24*time.Hour - time.Second), // 10th, 23:59:59
		base.Add(24 * time.Hour),             // 11th, 00:00
	}
	for i, at := range stamps {
		p := model.Patient{CINro: "1", Nombre: "P", Apellido: string(rune('A' + i))}
		require.NoError(t, s.CreatePatient(ctx, &p))
		_, err := s.MarkAttended(ctx, p.ID, at)
		require.NoError(t, err)
	}

	all, err := s.ListAttended(ctx, TimeRange{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CalledAt.After(all[i-1].CalledAt), "history must be newest first")
	}

	from, to := base, base.Add(24*time.Hour)
	day, err := s.ListAttended(ctx, TimeRange{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, day, 3)
	assert.Equal(t, "D", day[0].Apellido)
	assert.Equal(t, "B", day[2].Apellido)
}

func TestGormStore_Subscriptions(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testsupport.NewSQLiteDB(t))

	sub := model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k1", Auth: "a1"}
	require.NoError(t, s.SaveSubscription(ctx, &sub))

	sub.P256DH = "k2"
	require.NoError(t, s.SaveSubscription(ctx, &sub))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, "k2", got.P256DH)

	subs, err := s.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, ErrNotFound)
}

func countRows(s Store, m any, n *int64) error {
	return s.(*gormStore).db.Model(m).Count(n).Error
}
