// Package adaptive implements the competitive-quiz session engine: a
// per-session state machine blending tabular Q-learning with Thompson
// sampling bandits to pick each next question's difficulty.
package adaptive

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

type Difficulty = generate.Difficulty

const (
	DifficultyLow    = generate.DifficultyLow
	DifficultyMedium = generate.DifficultyMedium
	DifficultyHard   = generate.DifficultyHard
)

var allDifficulties = []Difficulty{DifficultyLow, DifficultyMedium, DifficultyHard}

func levelOf(d Difficulty) int {
	switch d {
	case DifficultyLow:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return 1
	}
}

// Trend summarizes recent performance over up to the last 3 answered turns.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// State is a Q-learning state: the difficulty just served plus the recent
// performance trend. There are 9 reachable states.
type State struct {
	Difficulty Difficulty
	Trend      Trend
}

var rewardTable = map[Difficulty]struct{ Correct, Incorrect float64 }{
	DifficultyLow:    {Correct: 0.50, Incorrect: -0.50},
	DifficultyMedium: {Correct: 0.75, Incorrect: -0.55},
	DifficultyHard:   {Correct: 1.00, Incorrect: -0.75},
}

// AnsweredTurn records one graded question within a session.
type AnsweredTurn struct {
	QuestionID string
	Difficulty Difficulty
	UserAnswer string
	IsCorrect  bool
	Reward     float64
}

// beta holds the Beta-distribution parameters of one difficulty's bandit
// arm. Both start at 1 (uniform prior) and only ever increase.
type beta struct {
	Alpha float64
	Beta  float64
}

// QuizSession is one in-progress (or completed) adaptive quiz run. Mutating
// operations are serialized by mu so concurrent answer calls on the same
// session are rejected rather than racing.
type QuizSession struct {
	mu sync.Mutex

	SessionID   string
	QuizID      string
	Bank        *generate.QuestionBank
	TargetCount int

	Answered        []AnsweredTurn
	QTable          map[State]map[Difficulty]float64
	Bandit          map[Difficulty]*beta
	UsedQuestionIDs map[string]bool

	CurrentDifficulty Difficulty
	CurrentQuestionID string
	actionState       State // state at which CurrentDifficulty was chosen as an action
	Complete          bool
}

// Stats summarizes a session's progress as of the most recent answer.
type Stats struct {
	QuestionsAnswered      int                `json:"questions_answered"`
	CorrectAnswers         int                `json:"correct_answers"`
	Accuracy               float64            `json:"accuracy"`
	TotalReward            float64            `json:"total_reward"`
	PerformanceTrend       Trend              `json:"performance_trend"`
	DifficultyDistribution map[Difficulty]int `json:"difficulty_distribution"`
}

// AnswerResult is returned from Answer; NextQuestion/NextDifficulty are only
// populated when the session is not yet complete.
type AnswerResult struct {
	IsCorrect      bool
	CorrectAnswer  string
	Explanation    string
	Reward         float64
	Stats          Stats
	IsComplete     bool
	NextQuestion   *generate.BankQuestion
	NextDifficulty Difficulty
}

// BankStore optionally persists question banks outside process memory. The
// core does not require one; a nil store makes RegisterBank/Start behave as
// pure in-memory operations.
type BankStore interface {
	SaveBank(ctx context.Context, bank *generate.QuestionBank) error
	LoadBank(ctx context.Context, quizID string) (*generate.QuestionBank, error)
}

type Service struct {
	mu       sync.RWMutex
	banks    map[string]*generate.QuestionBank
	sessions map[string]*QuizSession
	store    BankStore

	alpha        float64
	gamma        float64
	epsilon      float64
	blendWeightQ float64

	log *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Service {
	alpha, gamma, epsilon, blendWeightQ := cfg.Adaptive.QLAlpha, cfg.Adaptive.QLGamma, cfg.Adaptive.QLEpsilon, cfg.Adaptive.BlendWeightQ
	if alpha <= 0 {
		alpha = 0.1
	}
	if gamma <= 0 {
		gamma = 0.9
	}
	if epsilon <= 0 {
		epsilon = 0.2
	}
	if blendWeightQ <= 0 {
		blendWeightQ = 0.7
	}
	return &Service{
		banks:        make(map[string]*generate.QuestionBank),
		sessions:     make(map[string]*QuizSession),
		alpha:        alpha,
		gamma:        gamma,
		epsilon:      epsilon,
		blendWeightQ: blendWeightQ,
		log:          log.With("service", "AdaptiveQuizEngine"),
	}
}

// SetBankStore attaches an optional persistence adapter. Banks registered
// afterward are saved through it, and Start falls back to loading from it on
// a local cache miss.
func (s *Service) SetBankStore(store BankStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

// RegisterBank makes a previously generated question bank available for
// Start to mint sessions against. If a BankStore is attached, the bank is
// also persisted best-effort: a save failure is logged, not fatal, since the
// in-memory copy still serves the current process.
func (s *Service) RegisterBank(bank *generate.QuestionBank) {
	s.mu.Lock()
	s.banks[bank.QuizID] = bank
	store := s.store
	s.mu.Unlock()

	if store != nil {
		if err := store.SaveBank(context.Background(), bank); err != nil {
			s.log.Warn("bank persistence failed", "quiz_id", bank.QuizID, "error", err)
		}
	}
}

// Start mints a new session against quizID's bank, drawing the first
// question at medium difficulty.
func (s *Service) Start(ctx context.Context, quizID string, targetCount int) (*QuizSession, error) {
	if targetCount < 5 || targetCount > 10 {
		return nil, apierr.BadInputf("num_questions for a session must be between 5 and 10")
	}

	bank, err := s.resolveBank(ctx, quizID)
	if err != nil {
		return nil, err
	}

	session := &QuizSession{
		SessionID:         uuid.NewString(),
		QuizID:            quizID,
		Bank:              bank,
		TargetCount:       targetCount,
		QTable:            make(map[State]map[Difficulty]float64),
		Bandit:            newBandit(),
		UsedQuestionIDs:   make(map[string]bool),
		CurrentDifficulty: DifficultyMedium,
		actionState:       State{Difficulty: DifficultyMedium, Trend: TrendStable},
	}

	question, ok := drawQuestion(bank, DifficultyMedium, session.UsedQuestionIDs)
	if !ok {
		return nil, apierr.BadInputf("question bank %q has no questions available", quizID)
	}
	session.CurrentQuestionID = question.QuestionID
	session.UsedQuestionIDs[question.QuestionID] = true

	s.mu.Lock()
	s.sessions[session.SessionID] = session
	s.mu.Unlock()

	return session, nil
}

// resolveBank looks up quizID in the local cache, falling back to the
// attached BankStore (if any) on a miss and caching what it finds.
func (s *Service) resolveBank(ctx context.Context, quizID string) (*generate.QuestionBank, error) {
	s.mu.RLock()
	bank, ok := s.banks[quizID]
	store := s.store
	s.mu.RUnlock()
	if ok {
		return bank, nil
	}
	if store == nil {
		return nil, apierr.NotFoundf("quiz %q not found", quizID)
	}

	loaded, err := store.LoadBank(ctx, quizID)
	if err != nil || loaded == nil {
		return nil, apierr.NotFoundf("quiz %q not found", quizID)
	}
	s.mu.Lock()
	s.banks[quizID] = loaded
	s.mu.Unlock()
	return loaded, nil
}

// CurrentQuestion resolves a session's current bank question for display.
func (s *Service) CurrentQuestion(session *QuizSession) *generate.BankQuestion {
	return findQuestion(session.Bank, session.CurrentQuestionID)
}

// Answer grades the session's current question, updates the Q-table and
// bandit, and either completes the session or draws the next question.
func (s *Service) Answer(ctx context.Context, sessionID, questionID, userAnswer string) (*AnswerResult, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, apierr.NotFoundf("session %q not found", sessionID)
	}

	if !session.mu.TryLock() {
		return nil, apierr.Conflictf("session %q is already processing an answer", sessionID)
	}
	defer session.mu.Unlock()

	if session.Complete {
		return nil, apierr.Conflictf("session %q has already completed", sessionID)
	}
	if questionID != session.CurrentQuestionID {
		return nil, apierr.BadInputf("question_id %q does not match the session's current question", questionID)
	}

	letter, err := normalizeLetter(userAnswer)
	if err != nil {
		return nil, err
	}

	item := findQuestion(session.Bank, questionID)
	if item == nil {
		return nil, apierr.Internalf(nil, "current question %q missing from bank", questionID)
	}

	correctLetter, _ := normalizeLetter(item.CorrectAnswer)
	isCorrect := letter == correctLetter
	rewards := rewardTable[session.CurrentDifficulty]
	reward := rewards.Incorrect
	if isCorrect {
		reward = rewards.Correct
	}

	turn := AnsweredTurn{
		QuestionID: questionID,
		Difficulty: session.CurrentDifficulty,
		UserAnswer: letter,
		IsCorrect:  isCorrect,
		Reward:     reward,
	}
	session.Answered = append(session.Answered, turn)

	nextState := State{Difficulty: session.CurrentDifficulty, Trend: computeTrend(session.Answered)}
	updateQTable(session.QTable, session.actionState, session.CurrentDifficulty, reward, nextState, s.alpha, s.gamma)
	updateBandit(session.Bandit[session.CurrentDifficulty], isCorrect)

	result := &AnswerResult{
		IsCorrect:     isCorrect,
		CorrectAnswer: correctLetter,
		Explanation:   item.Explanation,
		Reward:        reward,
		Stats:         computeStats(session),
	}

	if len(session.Answered) >= session.TargetCount {
		session.Complete = true
		result.IsComplete = true
		return result, nil
	}

	nextDifficulty := selectNextDifficulty(session.QTable, nextState, session.Bandit, session.CurrentDifficulty, isCorrect, s.epsilon, s.blendWeightQ)
	question, ok := drawQuestion(session.Bank, nextDifficulty, session.UsedQuestionIDs)
	if !ok {
		// The bank is exhausted; the session ends early at its current length.
		session.Complete = true
		session.TargetCount = len(session.Answered)
		result.IsComplete = true
		result.Stats = computeStats(session)
		return result, nil
	}

	session.UsedQuestionIDs[question.QuestionID] = true
	session.CurrentQuestionID = question.QuestionID
	session.CurrentDifficulty = nextDifficulty
	session.actionState = nextState

	result.NextQuestion = question
	result.NextDifficulty = nextDifficulty
	return result, nil
}

func newBandit() map[Difficulty]*beta {
	b := make(map[Difficulty]*beta, 3)
	for _, d := range allDifficulties {
		b[d] = &beta{Alpha: 1, Beta: 1}
	}
	return b
}

func updateBandit(b *beta, correct bool) {
	if correct {
		b.Alpha++
	} else {
		b.Beta++
	}
}

// updateQTable applies the standard tabular Q-learning update in place,
// lazily materializing the sparse table entries it touches.
func updateQTable(table map[State]map[Difficulty]float64, s State, a Difficulty, reward float64, sNext State, alpha, gamma float64) {
	row := table[s]
	if row == nil {
		row = make(map[Difficulty]float64, 3)
		table[s] = row
	}
	current := row[a]
	maxNext := maxQ(table[sNext])
	row[a] = current + alpha*(reward+gamma*maxNext-current)
}

func maxQ(row map[Difficulty]float64) float64 {
	if len(row) == 0 {
		return 0
	}
	max := -1e18
	for _, v := range row {
		if v > max {
			max = v
		}
	}
	return max
}

// computeTrend follows the window of up to the last 3 answered turns:
// 2+ correct -> improving, 2+ incorrect -> declining, otherwise stable.
func computeTrend(turns []AnsweredTurn) Trend {
	window := turns
	if len(window) > 3 {
		window = window[len(window)-3:]
	}
	if len(window) < 2 {
		return TrendStable
	}
	correct, incorrect := 0, 0
	for _, t := range window {
		if t.IsCorrect {
			correct++
		} else {
			incorrect++
		}
	}
	switch {
	case correct >= 2:
		return TrendImproving
	case incorrect >= 2:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// qPolicyTieOrder breaks Q-value ties in the exploitation policy.
var qPolicyTieOrder = []Difficulty{DifficultyMedium, DifficultyLow, DifficultyHard}

func qPolicy(table map[State]map[Difficulty]float64, s State, epsilon float64) Difficulty {
	if rand.Float64() < epsilon {
		return allDifficulties[rand.Intn(len(allDifficulties))]
	}
	row := table[s]
	best := qPolicyTieOrder[0]
	bestVal := row[best]
	for _, d := range qPolicyTieOrder[1:] {
		if row[d] > bestVal {
			bestVal = row[d]
			best = d
		}
	}
	return best
}

func thompsonPolicy(bandit map[Difficulty]*beta) Difficulty {
	best := allDifficulties[0]
	bestTheta := -1.0
	for _, d := range allDifficulties {
		b := bandit[d]
		theta := sampleBeta(b.Alpha, b.Beta)
		if theta > bestTheta {
			bestTheta = theta
			best = d
		}
	}
	return best
}

// sampleBeta draws from Beta(alpha, beta) for positive-integer parameters
// using the order-statistic identity: Beta(a,b) is distributed as the a-th
// smallest of (a+b-1) independent Uniform(0,1) draws. The bandit's
// parameters here are always positive integers (they start at 1 and only
// increment), so this is exact and needs no gamma-function sampler.
func sampleBeta(alpha, beta float64) float64 {
	a := int(alpha)
	b := int(beta)
	if a < 1 {
		a = 1
	}
	if b < 1 {
		b = 1
	}
	n := a + b - 1
	draws := make([]float64, n)
	for i := range draws {
		draws[i] = rand.Float64()
	}
	sort.Float64s(draws)
	return draws[a-1]
}

// selectNextDifficulty blends the Q-policy and Thompson-sampling
// recommendations, then applies the safety adjustment based on the last
// answer's correctness.
func selectNextDifficulty(table map[State]map[Difficulty]float64, nextState State, bandit map[Difficulty]*beta, currentDifficulty Difficulty, lastCorrect bool, epsilon, blendWeightQ float64) Difficulty {
	qChoice := qPolicy(table, nextState, epsilon)
	thompsonChoice := thompsonPolicy(bandit)

	blended := thompsonChoice
	if rand.Float64() < blendWeightQ {
		blended = qChoice
	}

	switch {
	case lastCorrect && levelOf(blended) < levelOf(currentDifficulty):
		return currentDifficulty
	case !lastCorrect && levelOf(blended) > levelOf(currentDifficulty):
		return currentDifficulty
	default:
		return blended
	}
}

// drawQuestion picks an unused item at preferred difficulty, falling back
// in order medium -> low -> hard -> any unused item.
func drawQuestion(bank *generate.QuestionBank, preferred Difficulty, used map[string]bool) (*generate.BankQuestion, bool) {
	order := []Difficulty{preferred, DifficultyMedium, DifficultyLow, DifficultyHard}
	seen := make(map[Difficulty]bool, 4)
	for _, d := range order {
		if seen[d] {
			continue
		}
		seen[d] = true
		for i := range bank.Items {
			item := &bank.Items[i]
			if item.Difficulty == d && !used[item.QuestionID] {
				return item, true
			}
		}
	}
	for i := range bank.Items {
		item := &bank.Items[i]
		if !used[item.QuestionID] {
			return item, true
		}
	}
	return nil, false
}

func findQuestion(bank *generate.QuestionBank, questionID string) *generate.BankQuestion {
	for i := range bank.Items {
		if bank.Items[i].QuestionID == questionID {
			return &bank.Items[i]
		}
	}
	return nil
}

func normalizeLetter(s string) (string, error) {
	letter := strings.ToUpper(strings.TrimSpace(s))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'D' {
		return "", apierr.BadInputf("answer must be a single letter A-D, got %q", s)
	}
	return letter, nil
}

func computeStats(session *QuizSession) Stats {
	stats := Stats{
		DifficultyDistribution: map[Difficulty]int{},
	}
	var totalReward float64
	correct := 0
	for _, t := range session.Answered {
		stats.DifficultyDistribution[t.Difficulty]++
		totalReward += t.Reward
		if t.IsCorrect {
			correct++
		}
	}
	stats.QuestionsAnswered = len(session.Answered)
	stats.CorrectAnswers = correct
	if stats.QuestionsAnswered > 0 {
		stats.Accuracy = 100 * float64(correct) / float64(stats.QuestionsAnswered)
	}
	stats.TotalReward = totalReward
	stats.PerformanceTrend = computeTrend(session.Answered)
	return stats
}
