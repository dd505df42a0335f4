package protocol

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouvidoria/portal-aprendiz/internal/auth"
	"github.com/ouvidoria/portal-aprendiz/internal/refine"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

func TestMain(m *testing.M) {
	_ = auth.WithParams(&argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	os.Exit(m.Run())
}

type memRedis struct {
	data map[string]string
}

func (m *memRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if m.data == nil {
		m.data = make(map[string]string)
	}
	if b, ok := value.([]byte); ok {
		m.data[key] = string(b)
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := m.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.data, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, prompt, systemInstruction string, format refine.Format) (string, error) {
	return "", errors.New("serviço fora do ar")
}

type recordingNotifier struct {
	sent []repo.Protocolo
	err  error
}

func (r *recordingNotifier) ProtocolCreated(ctx context.Context, p repo.Protocolo) error {
	r.sent = append(r.sent, p)
	return r.err
}

// staleExists simula dois envios que sortearam o mesmo código: a consulta
// prévia não vê o outro, e só a gravação acusa a repetição.
type staleExists struct {
	*repo.Protocols
}

func (staleExists) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type env struct {
	auth     *service.AuthService
	protocol *Service
	notifier *recordingNotifier
}

func newEnv(t *testing.T) env {
	t.Helper()
	st, err := store.NewLocal("")
	require.NoError(t, err)
	vocab, err := LoadVocabulary()
	require.NoError(t, err)

	users := repo.NewUsers(st)
	authSvc := service.NewAuthService(users, session.NewStore(&memRedis{}, time.Hour), auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour))
	n := &recordingNotifier{}
	svc := NewService(repo.NewProtocols(st), users, refine.New(failingGenerator{}, 10), n, vocab, 20)

	return env{auth: authSvc, protocol: svc, notifier: n}
}

func (e env) register(t *testing.T, role, ident, empresa string) *session.Session {
	t.Helper()
	res, err := e.auth.Register(context.Background(), service.RegisterInput{
		Role:           role,
		Identificacao:  ident,
		Senha:          "abc12345",
		ConfirmarSenha: "abc12345",
		Empresa:        empresa,
	})
	require.NoError(t, err)
	return res.Session
}

var apprenticeID = regexp.MustCompile(`^APR-[1-9][0-9]{5}$`)

func TestScenarioAnaRegistersAndSubmits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.auth.Register(ctx, service.RegisterInput{
		Role:           repo.RoleAprendiz,
		Nome:           "Ana",
		Identificacao:  "MAT123",
		Senha:          "abc12345",
		ConfirmarSenha: "abc12345",
		Empresa:        "Tech Soluções LTDA (Matriz)",
	})
	require.NoError(t, err)

	p, err := e.protocol.Submit(ctx, res.Session, SubmitInput{
		Tipo:      "Reclamação",
		Descricao: "texto com mais de vinte caracteres aqui",
	})
	require.NoError(t, err)
	assert.Regexp(t, apprenticeID, p.ID)
	assert.Equal(t, repo.StatusRecebido, p.Status)
	assert.Equal(t, "Desvio de função", p.Motivo)
	assert.Equal(t, "Tech Soluções LTDA (Matriz)", p.Empresa)
	assert.Equal(t, "MAT123", p.UsuarioEmail)

	list, err := e.protocol.List(ctx, res.Session)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
	assert.Equal(t, repo.StatusRecebido, list[0].Status)
}

func TestScenarioCompanySeesOnlyOwnProtocols(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	techco := e.register(t, repo.RoleEmpresa, "11.111.111/0001-11", "TechCo")
	ana := e.register(t, repo.RoleAprendiz, "MAT1", "TechCo")
	bia := e.register(t, repo.RoleAprendiz, "MAT2", "OutraCo")

	_, err := e.protocol.Submit(ctx, ana, SubmitInput{Tipo: "Elogio", Descricao: "meu tutor explica tudo com paciência"})
	require.NoError(t, err)
	_, err = e.protocol.Submit(ctx, ana, SubmitInput{Tipo: "Denúncia", Descricao: "fui colocado para fazer limpeza pesada"})
	require.NoError(t, err)
	_, err = e.protocol.Submit(ctx, bia, SubmitInput{Tipo: "Elogio", Descricao: "ambiente muito acolhedor na OutraCo"})
	require.NoError(t, err)

	list, err := e.protocol.List(ctx, techco)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, p := range list {
		assert.Equal(t, "TechCo", p.Empresa)
	}

	d, err := e.protocol.Dashboard(ctx, techco)
	require.NoError(t, err)
	require.Len(t, d.Protocolos, 1, "empresa só vê elogios no painel")
	assert.Equal(t, "Elogio", d.Protocolos[0].Tipo)
	assert.Equal(t, Stats{Total: 2, Pending: 2, PraiseCount: 1}, d.Stats)
	require.NotNil(t, d.Equipe)
	assert.Equal(t, 1, *d.Equipe)
}

func TestListOrdersNewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.register(t, repo.RoleAprendiz, "MAT1", "TechCo")

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	e.protocol.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := e.protocol.Submit(ctx, ana, SubmitInput{Descricao: "relato número suficiente de caracteres"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	list, err := e.protocol.List(ctx, ana)
	require.NoError(t, err)
	got := []string{list[0].ID, list[1].ID, list[2].ID}
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, got)
}

func TestSubmitAnonymous(t *testing.T) {
	e := newEnv(t)

	p, err := e.protocol.Submit(context.Background(), nil, SubmitInput{Tipo: "Denúncia", Descricao: "relato anônimo com detalhes suficientes"})
	require.NoError(t, err)
	assert.Regexp(t, `^ANO-[1-9][0-9]{5}$`, p.ID)
	assert.Equal(t, UsuarioAnonimo, p.UsuarioEmail)
	assert.Equal(t, EmpresaGeral, p.Empresa)
	require.Len(t, e.notifier.sent, 1, "denúncia dispara aviso")

	p, err = e.protocol.Submit(context.Background(), nil, SubmitInput{Tipo: "Sugestão", Empresa: " TechCo ", Descricao: "sugiro mais treinamentos práticos"})
	require.NoError(t, err)
	assert.Equal(t, "TechCo", p.Empresa)
	assert.Len(t, e.notifier.sent, 1)
}

func TestSubmitNotifierFailureIsIgnored(t *testing.T) {
	e := newEnv(t)
	e.notifier.err = errors.New("webhook fora do ar")

	_, err := e.protocol.Submit(context.Background(), nil, SubmitInput{Tipo: "Denúncia", Descricao: "relato anônimo com detalhes suficientes"})
	assert.NoError(t, err)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.protocol.Submit(ctx, nil, SubmitInput{Descricao: "   curto demais      "})
	var verr *util.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, util.CodeTooShort, verr.Code)

	company := e.register(t, repo.RoleEmpresa, "CNPJ1", "TechCo")
	_, err = e.protocol.Submit(ctx, company, SubmitInput{Descricao: "empresa tentando registrar protocolo"})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestSubmitRetriesOnCollision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	seq := []int{123456, 123456, 654321}
	e.protocol.suffix = func() int {
		n := seq[0]
		seq = seq[1:]
		return n
	}

	first, err := e.protocol.Submit(ctx, nil, SubmitInput{Descricao: "primeiro relato anônimo longo"})
	require.NoError(t, err)
	second, err := e.protocol.Submit(ctx, nil, SubmitInput{Descricao: "segundo relato anônimo longo"})
	require.NoError(t, err)

	assert.Equal(t, "ANO-123456", first.ID)
	assert.Equal(t, "ANO-654321", second.ID)
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	e := newEnv(t)
	e.protocol.suffix = func() int { return 111111 }

	_, err := e.protocol.Submit(context.Background(), nil, SubmitInput{Descricao: "primeiro relato anônimo longo"})
	require.NoError(t, err)
	_, err = e.protocol.Submit(context.Background(), nil, SubmitInput{Descricao: "segundo relato anônimo longo"})
	assert.ErrorIs(t, err, ErrIDExhausted)
}

func TestSubmitRedrawsWhenInsertHitsTakenID(t *testing.T) {
	st, err := store.NewLocal("")
	require.NoError(t, err)
	vocab, err := LoadVocabulary()
	require.NoError(t, err)
	svc := NewService(staleExists{repo.NewProtocols(st)}, repo.NewUsers(st), refine.New(failingGenerator{}, 10), nil, vocab, 20)

	seq := []int{123456, 123456, 654321}
	svc.suffix = func() int {
		n := seq[0]
		seq = seq[1:]
		return n
	}

	ctx := context.Background()
	first, err := svc.Submit(ctx, nil, SubmitInput{Descricao: "primeiro relato anônimo longo"})
	require.NoError(t, err)
	second, err := svc.Submit(ctx, nil, SubmitInput{Descricao: "segundo relato anônimo longo"})
	require.NoError(t, err)

	assert.Equal(t, "ANO-123456", first.ID)
	assert.Equal(t, "ANO-654321", second.ID)
}

func TestApprenticesSharingEmailSeeOnlyOwnProtocols(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sessions := make(map[string]*session.Session)
	for _, ident := range []string{"MAT1", "MAT2"} {
		res, err := e.auth.Register(ctx, service.RegisterInput{
			Role:           repo.RoleAprendiz,
			Identificacao:  ident,
			Email:          "familia@exemplo.com",
			Senha:          "abc12345",
			ConfirmarSenha: "abc12345",
			Empresa:        "TechCo",
		})
		require.NoError(t, err)
		sessions[ident] = res.Session
	}

	p, err := e.protocol.Submit(ctx, sessions["MAT1"], SubmitInput{Tipo: "Denúncia", Descricao: "relato feito pela primeira aprendiz"})
	require.NoError(t, err)
	assert.Equal(t, "MAT1", p.UsuarioEmail)

	list, err := e.protocol.List(ctx, sessions["MAT2"])
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = e.protocol.List(ctx, sessions["MAT1"])
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestReservedMarkersCannotBeUsedToReadAnonymousProtocols(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.protocol.Submit(ctx, nil, SubmitInput{Tipo: "Denúncia", Descricao: "relato anônimo com detalhes suficientes"})
	require.NoError(t, err)

	for _, ident := range []string{UsuarioAnonimo, " ANONIMO "} {
		_, err := e.auth.Register(ctx, service.RegisterInput{
			Role:           repo.RoleAprendiz,
			Identificacao:  ident,
			Senha:          "abc12345",
			ConfirmarSenha: "abc12345",
			Empresa:        "TechCo",
		})
		var verr *util.ValidationError
		require.ErrorAs(t, err, &verr, ident)
		assert.Equal(t, "identificacao", verr.Field)
	}

	for _, empresa := range []string{EmpresaGeral, "geral"} {
		_, err := e.auth.Register(ctx, service.RegisterInput{
			Role:           repo.RoleEmpresa,
			Identificacao:  "11.111.111/0001-11",
			Senha:          "abc12345",
			ConfirmarSenha: "abc12345",
			Empresa:        empresa,
		})
		var verr *util.ValidationError
		require.ErrorAs(t, err, &verr, empresa)
		assert.Equal(t, "empresa", verr.Field)
	}

	// uma empresa comum continua sem ver os relatos sem empresa
	techco := e.register(t, repo.RoleEmpresa, "11.111.111/0001-11", "TechCo")
	list, err := e.protocol.List(ctx, techco)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRandomSuffixRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n := randomSuffix()
		if n < 100000 || n > 999999 {
			t.Fatalf("sufixo fora da faixa: %d", n)
		}
	}
}

func TestStatsIsPure(t *testing.T) {
	e := newEnv(t)
	list := []repo.Protocolo{
		{Tipo: "Denúncia", Status: repo.StatusRecebido},
		{Tipo: "Elogio", Status: repo.StatusAnalise},
		{Tipo: "Reclamação", Status: repo.StatusConcluido},
		{Tipo: "Sugestão", Status: repo.StatusArquivado},
	}
	snapshot := append([]repo.Protocolo(nil), list...)

	first := e.protocol.Stats(list)
	second := e.protocol.Stats(list)

	assert.Equal(t, Stats{Total: 4, Pending: 2, Completed: 1, PraiseCount: 1}, first)
	assert.Equal(t, first, second)
	if diff := cmp.Diff(snapshot, list); diff != "" {
		t.Fatalf("Stats alterou a entrada:\n%s", diff)
	}
}

func TestRefineFallsBack(t *testing.T) {
	e := newEnv(t)
	text := "relato que o serviço de refino não conseguirá processar"

	res := e.protocol.Refine(context.Background(), text)
	assert.Equal(t, text, res.RefinedText)
	assert.Empty(t, res.LegalAnalysis)
}

func TestUpdateStatusIsMonotoneAndRegulatorOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ana := e.register(t, repo.RoleAprendiz, "MAT1", "TechCo")
	p, err := e.protocol.Submit(ctx, ana, SubmitInput{Descricao: "relato para acompanhamento do auditor"})
	require.NoError(t, err)

	_, err = e.protocol.UpdateStatus(ctx, ana, p.ID, repo.StatusAnalise)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = e.auth.ProvisionAuditor(ctx, service.AuditorInput{Nome: "Fiscal", Identificacao: "AUD1", Senha: "fiscal2025"})
	require.NoError(t, err)
	login, err := e.auth.Login(ctx, repo.RoleMinisterio, "AUD1", "fiscal2025")
	require.NoError(t, err)
	auditor := login.Session

	all, err := e.protocol.List(ctx, auditor)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	updated, err := e.protocol.UpdateStatus(ctx, auditor, p.ID, repo.StatusConcluido)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusConcluido, updated.Status)

	_, err = e.protocol.UpdateStatus(ctx, auditor, p.ID, repo.StatusAnalise)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.protocol.UpdateStatus(ctx, auditor, p.ID, "Perdido")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.protocol.UpdateStatus(ctx, auditor, "APR-000000", repo.StatusArquivado)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
