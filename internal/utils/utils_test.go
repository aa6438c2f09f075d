package utils

import (
	"context"
	"strings"
	"testing"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateVoucherCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := GenerateVoucherCode()
		require.Len(t, code, len(VoucherCodePrefix)+6)
		assert.True(t, strings.HasPrefix(code, VoucherCodePrefix))
		assert.Equal(t, strings.ToUpper(code), code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a****@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "x@y.ma", MaskEmail("x@y.ma"))
	assert.Equal(t, "nope", MaskEmail("nope"))
}

func TestImportCollectors(t *testing.T) {
	store := memory.New()
	users := store.Users()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{Email: "taken@recycle.ma", Role: models.RoleCollector}))

	csvData := strings.Join([]string{
		"Email,Password,First Name,Last Name,Street,City,Postal Code,Phone,Date of Birth",
		"Karim@Recycle.ma ,secret1,Karim,Alaoui,1 Rue A,Rabat,10000,0600000001,1990-04-02",
		"taken@recycle.ma,secret2,Old,User,2 Rue B,Rabat,10000,0600000002,",
		"not-an-email,secret3,Bad,Row,,,,,",
		"sara@recycle.ma,,Sara,Idrissi,3 Rue C,Casablanca,20000,0600000003,bogus",
	}, "\n")

	result, err := NewCollectorImporter(users).ImportCollectors(ctx, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Errors, 2)

	karim, err := users.FindByEmail(ctx, "karim@recycle.ma")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCollector, karim.Role)
	assert.Equal(t, "Rabat", karim.Address.City)
	assert.Equal(t, 1990, karim.DateOfBirth.Year())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(karim.Password), []byte("secret1")))

	generated, ok := result.GeneratedPasswords["sara@recycle.ma"]
	require.True(t, ok)
	sara, err := users.FindByEmail(ctx, "sara@recycle.ma")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(sara.Password), []byte(generated)))
}

func TestImportCollectorsRequiresEmailColumn(t *testing.T) {
	_, err := NewCollectorImporter(memory.New().Users()).ImportCollectors(context.Background(), strings.NewReader("Name,City\nA,B\n"))
	assert.Error(t, err)
}

func TestImportCollectorsDryRunAndRowLimit(t *testing.T) {
	users := memory.New().Users()
	ctx := context.Background()
	csvData := "Email,City\nkarim@recycle.ma,Rabat\nsara@recycle.ma,Casablanca\nomar@recycle.ma,Fes\n"

	result, err := NewCollectorImporter(users).WithDryRun(true).ImportCollectors(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Empty(t, result.GeneratedPasswords)
	_, err = users.FindByEmail(ctx, "karim@recycle.ma")
	assert.Error(t, err, "dry run must not write")

	result, err = NewCollectorImporter(users).WithMaxRows(2).ImportCollectors(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.Created)
	_, err = users.FindByEmail(ctx, "omar@recycle.ma")
	assert.Error(t, err)
}
