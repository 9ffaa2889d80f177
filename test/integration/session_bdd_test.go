//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/aura_mon/internal/infra"
	"github.com/eliteGoblin/focusd/aura_mon/internal/rules"
	"github.com/eliteGoblin/focusd/aura_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/aura_mon/test/fixtures"
)

var _ = Describe("Monitoring Session", func() {
	var (
		tmpDir   string
		desktop  *fixtures.ScriptedDesktop
		notifier *recordingNotifier
		history  *infra.EncryptedHistory
		states   *infra.StateFile
		pipeline *daemon.Pipeline
		cancel   context.CancelFunc
		done     chan error
		stopped  bool
	)

	// stopRun cancels the pipeline and waits for Run to return. Safe to call
	// twice, so specs asserting on shutdown behavior can call it before
	// AfterEach does.
	stopRun := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			Fail("pipeline did not stop in time")
			return nil
		}
	}

	focusedNow := func() bool {
		st, err := states.Read()
		return err == nil && st != nil && st.Focus.Focused
	}

	stateReason := func() string {
		st, err := states.Read()
		if err != nil || st == nil {
			return ""
		}
		return string(st.Focus.Reason)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auramon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()

		key, err := infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())
		history, err = infra.NewEncryptedHistory(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())
		states = infra.NewStateFile(filepath.Join(tmpDir, "state.json"))

		desktop = fixtures.NewScriptedDesktop()
		notifier = &recordingNotifier{}

		clsCfg := usecase.DefaultClassifierConfig()
		// One-second dwell so brief checks mature within the test window.
		clsCfg.BriefCheckS = 1
		classifier := usecase.NewClassifier(clsCfg, logger)
		rules.NewStore(filepath.Join(tmpDir, "rules.json"), logger).ApplyTo(classifier)

		policy := usecase.NewNotifyPolicy(usecase.NotifySettings{
			Enabled:             true,
			DistractionDelayS:   1,
			MinIntervalS:        1,
			RefocusQuietS:       1,
			EscalateAfterS:      []int{30, 60, 120},
			SuppressDuringBreak: true,
		}, notifier, logger)

		estimator := daemon.NewEstimator(daemon.EstimatorConfig{
			PollInterval: 100 * time.Millisecond,
			ScreenSample: 200 * time.Millisecond,
		}, desktop, logger)

		pipeline = daemon.NewPipeline(daemon.PipelineConfig{
			TickInterval:  100 * time.Millisecond,
			StateInterval: 200 * time.Millisecond,
			FlushInterval: 300 * time.Millisecond,
			AppVersion:    "integration-test",
		}, estimator, classifier, policy, usecase.NewLedger(logger), history, states, logger)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		stopped = false
		go func() {
			done <- pipeline.Run(ctx)
		}()
	})

	AfterEach(func() {
		stopRun()
		Expect(history.Close()).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("distraction detection", func() {
		Context("when the user drifts from the editor to streaming", func() {
			It("flips the verdict, nudges, and recovers on refocus", func() {
				Eventually(focusedNow, 3*time.Second, 50*time.Millisecond).Should(BeTrue(),
					"session should settle into focused work first")

				desktop.SwitchWindow("lofi hip hop radio - YouTube - Google Chrome", "chrome.exe")

				Eventually(focusedNow, 5*time.Second, 50*time.Millisecond).Should(BeFalse())
				Expect(stateReason()).To(Equal("entertainment"))

				Eventually(notifier.count, 8*time.Second, 100*time.Millisecond).Should(BeNumerically(">=", 1))
				first := notifier.first()
				Expect(first.title).To(Equal("auramon: Nudge to refocus"))
				Expect(first.message).To(ContainSubstring("entertainment"))

				desktop.SwitchWindow("main.go - Code", "code.exe")
				Eventually(focusedNow, 5*time.Second, 50*time.Millisecond).Should(BeTrue())
			})
		})
	})

	Describe("breaks", func() {
		Context("when a break is running", func() {
			It("suppresses nudges and freezes accounting until the break ends", func() {
				Eventually(focusedNow, 3*time.Second, 50*time.Millisecond).Should(BeTrue())

				pipeline.StartBreak(60)
				Eventually(stateReason, 3*time.Second, 50*time.Millisecond).Should(Equal("break"))

				st1, err := states.Read()
				Expect(err).NotTo(HaveOccurred())

				before := notifier.count()
				desktop.SwitchWindow("lofi hip hop radio - YouTube - Google Chrome", "chrome.exe")
				Consistently(notifier.count, 2500*time.Millisecond, 100*time.Millisecond).Should(Equal(before))

				st2, err := states.Read()
				Expect(err).NotTo(HaveOccurred())
				Expect(st2.FocusedS).To(Equal(st1.FocusedS), "paused ledger must not accrue")
				Expect(st2.UnfocusedS).To(Equal(st1.UnfocusedS))

				pipeline.StopBreak()
				Eventually(stateReason, 3*time.Second, 50*time.Millisecond).ShouldNot(Equal("break"))
				Eventually(focusedNow, 5*time.Second, 50*time.Millisecond).Should(BeFalse(),
					"classification should resume after the break")
				Eventually(notifier.count, 10*time.Second, 100*time.Millisecond).Should(BeNumerically(">", before))
			})
		})
	})

	Describe("shutdown", func() {
		It("persists the session summary and timeline", func() {
			Eventually(focusedNow, 3*time.Second, 50*time.Millisecond).Should(BeTrue())
			time.Sleep(500 * time.Millisecond)

			Expect(stopRun()).To(MatchError(context.Canceled))

			recs, err := history.RecentSummaries(time.Now().Add(-time.Minute), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).NotTo(BeEmpty())
			Expect(recs[0].Summary.Focused.Seconds()).To(BeNumerically(">", 0))
			Expect(recs[0].Summary.Apps).To(HaveKey("code.exe"))

			events, err := history.RecentTimeline(time.Now().Add(-time.Minute), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(events)).To(BeNumerically(">=", 2))
			last := events[len(events)-1]
			Expect(string(last.State)).To(Equal("focused"))
			Expect(last.App).To(Equal("code.exe"))

			st, err := states.Read()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.PID).To(Equal(os.Getpid()))
		})
	})
})

// recordingNotifier implements domain.Notifier, capturing nudges in memory.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

type notice struct {
	title   string
	message string
}

func (n *recordingNotifier) Notify(title, message string, timeout time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{title: title, message: message})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

func (n *recordingNotifier) first() notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return notice{}
	}
	return n.notices[0]
}
